package chat

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var chatTurnsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "markee_chat_turns_total",
		Help: "Total number of chat turns sent to the model.",
	},
	[]string{"status"},
)
