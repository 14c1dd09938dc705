package obs

import (
	"context"
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/webshop-works/checkout/internal/events"
)

var (
	domainOnce sync.Once

	// CartMutationsTotal counts cart mutations by topic.
	CartMutationsTotal *prometheus.CounterVec
	// DiscountApplicationsTotal counts applied discount codes.
	DiscountApplicationsTotal prometheus.Counter
	// PostageSearchesTotal counts address searches for postage options.
	PostageSearchesTotal prometheus.Counter
)

// MustRegisterDomainMetrics initialises and registers the cart domain
// collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		CartMutationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cart_mutations_total",
			Help:      "Count of cart mutations by event topic.",
		}, []string{"topic"})
		DiscountApplicationsTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "discount_applications_total",
			Help:      "Count of discount codes attached to carts.",
		})
		PostageSearchesTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "postage_searches_total",
			Help:      "Count of postage option searches.",
		})

		registerCollector(reg, CartMutationsTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				CartMutationsTotal = v
			}
		})
		registerCollector(reg, DiscountApplicationsTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(prometheus.Counter); ok {
				DiscountApplicationsTotal = v
			}
		})
		registerCollector(reg, PostageSearchesTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(prometheus.Counter); ok {
				PostageSearchesTotal = v
			}
		})
	})
}

// MetricsNotifier records cart mutation events as Prometheus counters. It
// is registered on the event bus at startup.
type MetricsNotifier struct{}

// Notify implements events.Notifier.
func (MetricsNotifier) Notify(_ context.Context, ev events.Event) error {
	if CartMutationsTotal != nil {
		CartMutationsTotal.WithLabelValues(ev.Topic).Inc()
	}
	switch ev.Topic {
	case events.TopicDiscountApplied:
		if DiscountApplicationsTotal != nil {
			DiscountApplicationsTotal.Inc()
		}
	case events.TopicPostageSearched:
		if PostageSearchesTotal != nil {
			PostageSearchesTotal.Inc()
		}
	}
	return nil
}

func registerCollector(reg prometheus.Registerer, c prometheus.Collector, replace func(prometheus.Collector)) {
	if err := reg.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			replace(are.ExistingCollector)
			return
		}
		panic(fmt.Errorf("register domain metric: %w", err))
	}
}
