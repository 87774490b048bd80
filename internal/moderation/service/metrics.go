package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	verdictsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "clay_moderation_verdicts_total",
		Help: "Automatic moderation verdicts by action.",
	}, []string{"action"})

	reportResolutionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "clay_report_resolutions_total",
		Help: "Report resolutions by outcome status.",
	}, []string{"status"})

	moderationActionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "clay_moderation_actions_total",
		Help: "Moderation actions recorded by type.",
	}, []string{"type"})

	appealResolutionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "clay_appeal_resolutions_total",
		Help: "Appeal resolutions by decision.",
	}, []string{"decision"})
)
