package entity

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	relationLoads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "entorm_relation_loads_total",
			Help: "Lazy relation fetches issued, by entity type, field and relation kind",
		},
		[]string{"entity_type", "field", "relation"},
	)
	coercionDrops = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "entorm_coercion_drops_total",
			Help: "Assignments dropped because the value did not coerce into the field type",
		},
		[]string{"entity_type", "field"},
	)
)
