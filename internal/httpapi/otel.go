package httpapi

import (
	"net/http"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.uber.org/zap"

	"github.com/MrEthical07/eduAuth/response"
)

type otelPoint struct {
	Attributes map[string]string `json:"attributes,omitempty"`
	Value      int64             `json:"value"`
}

// otelHandler collects reader on demand and publishes the int64 sums and
// gauges keyed by instrument name.
func otelHandler(reader *sdkmetric.ManualReader, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var rm metricdata.ResourceMetrics
		if err := reader.Collect(r.Context(), &rm); err != nil {
			logger.Error("otel collect failed", zap.Error(err))
			response.Write(w, response.Internal())
			return
		}

		out := make(map[string][]otelPoint)
		for _, sm := range rm.ScopeMetrics {
			for _, m := range sm.Metrics {
				switch data := m.Data.(type) {
				case metricdata.Sum[int64]:
					out[m.Name] = append(out[m.Name], points(data.DataPoints)...)
				case metricdata.Gauge[int64]:
					out[m.Name] = append(out[m.Name], points(data.DataPoints)...)
				}
			}
		}
		response.Write(w, response.OK(response.Payload{"metrics": out}))
	}
}

func points(dps []metricdata.DataPoint[int64]) []otelPoint {
	out := make([]otelPoint, 0, len(dps))
	for _, dp := range dps {
		p := otelPoint{Value: dp.Value}
		if dp.Attributes.Len() > 0 {
			p.Attributes = make(map[string]string, dp.Attributes.Len())
			for _, kv := range dp.Attributes.ToSlice() {
				p.Attributes[string(kv.Key)] = kv.Value.Emit()
			}
		}
		out = append(out, p)
	}
	return out
}
