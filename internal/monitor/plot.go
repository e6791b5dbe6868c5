package monitor

import (
	"net/http"

	"github.com/gorilla/mux"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"github.com/kiln-ml/kiln/internal/train"
)

func (s *Server) handlePlot(w http.ResponseWriter, r *http.Request) {
	series := mux.Vars(r)["series"]

	s.mu.Lock()
	stats := append([]train.EpochStats(nil), s.stats...)
	s.mu.Unlock()

	plt, err := chart(series, stats)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	wt, err := plt.WriterTo(8*vg.Inch, 4*vg.Inch, "svg")
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "image/svg+xml")
	if _, err := wt.WriteTo(w); err != nil {
		s.logger.Printf("monitor: plot write: %v", err)
	}
}

func chart(series string, stats []train.EpochStats) (*plot.Plot, error) {
	plt := plot.New()
	plt.Title.Text = "training " + series
	plt.X.Label.Text = "epoch"
	plt.Y.Label.Text = series
	plt.Legend.Top = true
	plt.Add(plotter.NewGrid())

	pts := make(plotter.XYs, len(stats))
	color := 0
	for i, st := range stats {
		pts[i].X = float64(st.Epoch)
		if series == "accuracy" {
			pts[i].Y = st.Accuracy
			color = 1
		} else {
			pts[i].Y = st.Loss
		}
	}

	line, err := plotter.NewLine(pts)
	if err != nil {
		return nil, err
	}
	line.Width = vg.Points(2)
	line.Color = plotutil.Color(color)
	plt.Add(line)
	plt.Legend.Add(series, line)

	return plt, nil
}

const indexHTML = `<!DOCTYPE html>
<html>
<head><title>kiln training monitor</title></head>
<body>
<h2>kiln training monitor</h2>
<p id="status">waiting for epochs...</p>
<img id="loss" src="/plots/loss.svg" width="640">
<img id="accuracy" src="/plots/accuracy.svg" width="640">
<script>
const ws = new WebSocket("ws://" + location.host + "/ws");
ws.onmessage = (ev) => {
	const s = JSON.parse(ev.data);
	document.getElementById("status").textContent =
		"epoch " + s.epoch + "  loss " + s.loss.toFixed(4) +
		"  accuracy " + (100 * s.accuracy).toFixed(2) + "%";
	const t = Date.now();
	document.getElementById("loss").src = "/plots/loss.svg?t=" + t;
	document.getElementById("accuracy").src = "/plots/accuracy.svg?t=" + t;
};
</script>
</body>
</html>
`

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte(indexHTML))
}
