// Package metrics exposes prometheus instrumentation for the core flows.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CreditsGranted counts blocks added to member balances, by source.
	CreditsGranted = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "corvmc",
		Subsystem: "ledger",
		Name:      "credits_granted_total",
		Help:      "Credit blocks added to member balances.",
	}, []string{"source"})

	// CreditsDeducted counts blocks deducted from member balances, by source.
	CreditsDeducted = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "corvmc",
		Subsystem: "ledger",
		Name:      "credits_deducted_total",
		Help:      "Credit blocks deducted from member balances.",
	}, []string{"source"})

	// InsufficientCredits counts rejected deductions.
	InsufficientCredits = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "corvmc",
		Subsystem: "ledger",
		Name:      "insufficient_credits_total",
		Help:      "Deductions rejected for exceeding the available balance.",
	})

	// InstancesGenerated counts reservation instances created by the expander.
	InstancesGenerated = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "corvmc",
		Subsystem: "recurrence",
		Name:      "instances_generated_total",
		Help:      "Reservation instances created by series expansion.",
	})

	// Checkouts counts successful equipment checkouts.
	Checkouts = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "corvmc",
		Subsystem: "loans",
		Name:      "checkouts_total",
		Help:      "Successful equipment checkouts.",
	})

	// CheckoutConflicts counts checkouts rejected because the item was
	// unavailable or already on an active loan.
	CheckoutConflicts = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "corvmc",
		Subsystem: "loans",
		Name:      "checkout_conflicts_total",
		Help:      "Checkouts rejected because the equipment was unavailable.",
	})
)
