package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gorilla/websocket"
	logger "github.com/sirupsen/logrus"

	"github.com/faculax/shanghai-commercial-bank/src/apperr"
	"github.com/faculax/shanghai-commercial-bank/src/live"
	"github.com/faculax/shanghai-commercial-bank/src/model"
)

type livePipeline interface {
	Submit(t live.Trade) live.Trade
	Flush(ctx context.Context) (*model.TradeImport, error)
	PendingTrades() []live.Trade
	PendingCount() int
	Config() live.Config
	Reconfigure(cfg live.Config) live.Config
	Feed() *live.Feed
}

// SubmitLiveTradeHandler appends one trade submission to the pending buffer.
func SubmitLiveTradeHandler(p livePipeline) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var trade live.Trade
		if err := json.NewDecoder(r.Body).Decode(&trade); err != nil {
			writeError(w, apperr.Validation("invalid trade body: %v", err))
			return
		}

		if trade.Side != "" {
			side, err := model.ParseTradeSide(string(trade.Side))
			if err != nil {
				writeError(w, apperr.Validation("%v", err))
				return
			}
			trade.Side = side
		}

		writeJSON(w, http.StatusAccepted, p.Submit(trade))
	}
}

// PendingTradesHandler returns the buffered submissions and their count.
func PendingTradesHandler(p livePipeline) http.HandlerFunc {
	type response struct {
		Count  int          `json:"count"`
		Trades []live.Trade `json:"trades"`
	}

	return func(w http.ResponseWriter, r *http.Request) {
		trades := p.PendingTrades()
		writeJSON(w, http.StatusOK, response{Count: len(trades), Trades: trades})
	}
}

// FlushLiveTradesHandler drains the pending buffer into a consolidated
// import. Responds 204 when the buffer was empty.
func FlushLiveTradesHandler(p livePipeline) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ti, err := p.Flush(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		if ti == nil {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		writeJSON(w, http.StatusCreated, ti)
	}
}

// GetLiveConfigHandler returns the current pipeline configuration.
func GetLiveConfigHandler(p livePipeline) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, p.Config())
	}
}

// UpdateLiveConfigHandler swaps the pipeline configuration, restarting the
// scheduled jobs under the new settings.
func UpdateLiveConfigHandler(p livePipeline) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var cfg live.Config
		if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
			writeError(w, apperr.Validation("invalid config body: %v", err))
			return
		}

		if cfg.Enabled && cfg.TradesPerSecond <= 0 {
			writeError(w, apperr.Validation("trades_per_second must be positive"))
			return
		}
		if cfg.Enabled && cfg.GroupingIntervalSeconds <= 0 {
			writeError(w, apperr.Validation("grouping_interval_seconds must be positive"))
			return
		}

		writeJSON(w, http.StatusOK, p.Reconfigure(cfg))
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// LiveFeedHandler upgrades to a websocket and streams every submitted live
// trade until the client disconnects.
func LiveFeedHandler(p livePipeline) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.WithError(err).Error("Failed to upgrade live feed connection")
			return
		}
		defer func() {
			if err := conn.Close(); err != nil {
				logger.WithError(err).Debug("Live feed close error")
			}
		}()

		trades, cancel := p.Feed().Subscribe()
		defer cancel()

		// Drain client frames so we notice the disconnect.
		go func() {
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					cancel()
					return
				}
			}
		}()

		for trade := range trades {
			if err := conn.WriteJSON(trade); err != nil {
				return
			}
		}
	}
}
