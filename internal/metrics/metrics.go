package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Счётчики ключевых событий жизненного цикла заданий.
var (
	BidsPlaced = promauto.NewCounter(prometheus.CounterOpts{
		Name: "taskdom_bids_placed_total",
		Help: "Количество размещённых откликов.",
	})

	BidsAccepted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "taskdom_bids_accepted_total",
		Help: "Количество принятых откликов.",
	})

	TasksCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "taskdom_tasks_created_total",
		Help: "Количество созданных заданий.",
	})

	TasksCompleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "taskdom_tasks_completed_total",
		Help: "Количество завершённых заданий.",
	})

	TasksCancelled = promauto.NewCounter(prometheus.CounterOpts{
		Name: "taskdom_tasks_cancelled_total",
		Help: "Количество отменённых заданий.",
	})

	EscrowLocked = promauto.NewCounter(prometheus.CounterOpts{
		Name: "taskdom_escrow_locked_total",
		Help: "Количество заморозок средств в эскроу.",
	})

	EscrowReleased = promauto.NewCounter(prometheus.CounterOpts{
		Name: "taskdom_escrow_released_total",
		Help: "Количество выплат из эскроу.",
	})

	EscrowRefunded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "taskdom_escrow_refunded_total",
		Help: "Количество возвратов из эскроу.",
	})
)
