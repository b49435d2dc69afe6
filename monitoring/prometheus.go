package monitoring

import (
	"net/http"

	"smc/logx"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type TxRejectedReason string

var (
	TxNotSigned         TxRejectedReason = "not_signed"
	TxInvalidSignature  TxRejectedReason = "invalid_signature"
	TxDuplicated        TxRejectedReason = "duplicate_transaction"
	TxInsufficientFunds TxRejectedReason = "insufficient_funds"
	TxSelfTransfer      TxRejectedReason = "self_transfer"
	TxRejectedUnknown   TxRejectedReason = "other"
)

type nodePromMetrics struct {
	nodeUpUnixSeconds prometheus.Gauge
	appliedTxCount    prometheus.Counter
	rejectedTxCount   *prometheus.CounterVec
	ingressTxCount    prometheus.Counter
	receivedTxCount   prometheus.Counter
	broadcastTxCount  prometheus.Counter
	pendingTxCount    prometheus.Gauge
	accountCount      prometheus.Gauge
	peerCount         prometheus.Gauge
	panicCount        prometheus.Counter
}

func newNodePromMetrics() *nodePromMetrics {
	return &nodePromMetrics{
		nodeUpUnixSeconds: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "smc_node_up_timestamp_unix_seconds",
				Help: "Unix timestamp of the node",
			},
		),
		appliedTxCount: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "smc_node_applied_tx_count",
				Help: "The total number of transactions applied to the ledger",
			},
		),
		rejectedTxCount: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "smc_node_rejected_tx_count",
				Help: "The total number of rejected transactions",
			},
			[]string{"reason"},
		),
		ingressTxCount: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "smc_node_ingress_tx_count",
				Help: "The total number of ingress transactions (received from client)",
			},
		),
		receivedTxCount: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "smc_node_received_tx_count",
				Help: "The total number of received transactions (received from broadcast or client)",
			},
		),
		broadcastTxCount: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "smc_node_broadcast_tx_count",
				Help: "The total number of transactions broadcast to peers",
			},
		),
		pendingTxCount: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "smc_node_pending_tx_count",
				Help: "The total pending transactions queued in node's mempool",
			},
		),
		accountCount: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "smc_node_account_count",
				Help: "The total number of accounts known to the ledger",
			},
		),
		peerCount: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "smc_node_peer_count",
				Help: "The total number of peer connections",
			},
		),
		panicCount: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "smc_node_panic_count",
				Help: "The total number of recovered panics",
			},
		),
	}
}

var nodeMetrics *nodePromMetrics

// InitMetrics initialize metrics for node but not expose to api yet
func InitMetrics() {
	nodeMetrics = newNodePromMetrics()
	nodeMetrics.nodeUpUnixSeconds.SetToCurrentTime()
}

func RegisterMetrics(mux *http.ServeMux) {
	logx.Info("MONITORING", "Registering prometheus metrics")
	mux.Handle("/metrics", promhttp.Handler())
}

func IncreaseAppliedTxCount() {
	if nodeMetrics == nil {
		return
	}
	nodeMetrics.appliedTxCount.Inc()
}

func RecordRejectedTx(reason TxRejectedReason) {
	if nodeMetrics == nil {
		return
	}
	nodeMetrics.rejectedTxCount.With(prometheus.Labels{
		"reason": string(reason),
	}).Inc()
}

func IncreaseIngressTxCount() {
	if nodeMetrics == nil {
		return
	}
	nodeMetrics.ingressTxCount.Inc()
}

func IncreaseReceivedTxCount() {
	if nodeMetrics == nil {
		return
	}
	nodeMetrics.receivedTxCount.Inc()
}

func IncreaseBroadcastTxCount() {
	if nodeMetrics == nil {
		return
	}
	nodeMetrics.broadcastTxCount.Inc()
}

func SetPendingTxCount(size int) {
	if nodeMetrics == nil {
		return
	}
	nodeMetrics.pendingTxCount.Set(float64(size))
}

func SetAccountCount(count int) {
	if nodeMetrics == nil {
		return
	}
	nodeMetrics.accountCount.Set(float64(count))
}

func SetPeerCount(count int) {
	if nodeMetrics == nil {
		return
	}
	nodeMetrics.peerCount.Set(float64(count))
}

func IncreasePanicCount() {
	if nodeMetrics == nil {
		return
	}
	nodeMetrics.panicCount.Inc()
}
