package hwtrain

import "github.com/prometheus/client_golang/prometheus"

// Metrics exports training progress to Prometheus.
type Metrics struct {
	BatchLoss    prometheus.Gauge
	EpochLoss    prometheus.Gauge
	ValCER       prometheus.Gauge
	ValWER       prometheus.Gauge
	Samples      prometheus.Counter
	EpochsRun    prometheus.Counter
	collectorSet []prometheus.Collector
}

// NewMetrics creates unregistered metrics.
func NewMetrics() *Metrics {
	gauge := func(name, help string) prometheus.Gauge {
		return prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "hwtrain",
			Name:      name,
			Help:      help,
		})
	}
	counter := func(name, help string) prometheus.Counter {
		return prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "hwtrain",
			Name:      name,
			Help:      help,
		})
	}
	m := &Metrics{
		BatchLoss: gauge("batch_loss", "Per-sample loss of the last training batch."),
		EpochLoss: gauge("epoch_loss", "Mean per-sample loss of the last epoch."),
		ValCER:    gauge("val_cer", "Character error rate on the validation set."),
		ValWER:    gauge("val_wer", "Word error rate on the validation set."),
		Samples:   counter("samples_total", "Training samples processed."),
		EpochsRun: counter("epochs_total", "Completed training epochs."),
	}
	m.collectorSet = []prometheus.Collector{m.BatchLoss, m.EpochLoss, m.ValCER, m.ValWER,
		m.Samples, m.EpochsRun}
	return m
}

// Register adds the metrics to a registry.
func (m *Metrics) Register(r prometheus.Registerer) error {
	for _, c := range m.collectorSet {
		if err := r.Register(c); err != nil {
			return err
		}
	}
	return nil
}
