package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	BidsAcceptedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "auction_bids_accepted_total",
			Help: "Total number of bids committed",
		},
	)

	BidsRejectedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auction_bids_rejected_total",
			Help: "Total number of rejected bids",
		},
		[]string{"reason"},
	)

	BidConflictsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "auction_bid_conflicts_total",
			Help: "Total number of bids that lost the in-transaction re-validation",
		},
	)

	AuctionsEndedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "auctions_ended_total",
			Help: "Total number of auctions materialized as ended",
		},
	)

	LiveSubscribers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "auction_live_subscribers",
			Help: "Number of currently connected live-channel clients",
		},
	)
)

// RecordBidAccepted counts a committed bid
func RecordBidAccepted() {
	BidsAcceptedTotal.Inc()
}

// RecordBidRejected counts a rejected bid by reason
func RecordBidRejected(reason string) {
	BidsRejectedTotal.WithLabelValues(reason).Inc()
}

// RecordBidConflict counts a bid that lost the commit race
func RecordBidConflict() {
	BidConflictsTotal.Inc()
	BidsRejectedTotal.WithLabelValues("conflict").Inc()
}

// RecordAuctionEnded counts a materialized end transition
func RecordAuctionEnded() {
	AuctionsEndedTotal.Inc()
}

// ClientConnected tracks a new live-channel client
func ClientConnected() {
	LiveSubscribers.Inc()
}

// ClientDisconnected tracks a departed live-channel client
func ClientDisconnected() {
	LiveSubscribers.Dec()
}
