package main

import (
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/go-chi/chi/v5"
	"github.com/totomz/zigzag/chart"
	"go.uber.org/zap"
)

var build string // set with -ldflags "-X main.build=..."

const page = `<!DOCTYPE html>
<html>
<head><script src="https://cdn.plot.ly/plotly-2.27.0.min.js"></script></head>
<body>
<div id="chart" style="width:100%;height:95vh;"></div>
<script>
fetch("/figure").then(r => r.json()).then(f => Plotly.newPlot("chart", f.data, f.layout));
</script>
</body>
</html>
`

// Service serves the latest figure written by cmd/zigzag
type Service struct {
	path   string
	logger *zap.Logger

	mu     sync.RWMutex
	figure []byte
}

func (s *Service) Load() error {
	fig, err := chart.ReadFile(s.path)
	if err != nil {
		return err
	}
	b, err := fig.JSON()
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.figure = b
	s.mu.Unlock()
	return nil
}

func (s *Service) Routes() http.Handler {
	r := chi.NewRouter()
	r.Get("/", s.Hello)
	r.Get("/figure", s.Figure)
	return r
}

func (s *Service) Hello(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, page)
}

func (s *Service) Figure(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.figure == nil {
		http.Error(w, "no figure loaded", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(s.figure)
}

// AddTo registers the folder of the figure with the watcher.
// The figure itself may not exist until the first optimization writes it.
func (s *Service) AddTo(watcher *fsnotify.Watcher) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	return watcher.Add(dir)
}

// Watch reloads the figure every time the file is written.
func (s *Service) Watch(watcher *fsnotify.Watcher) {
	target := filepath.Clean(s.path)
	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				s.logger.Info("reloading", zap.String("file", event.Name))
				if err := s.Load(); err != nil {
					s.logger.Error("reload failed", zap.Error(err))
				}
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			s.logger.Error("watcher error", zap.Error(err))
		}
	}
}

func main() {
	filePath := flag.String("file", "./plotly/zigzag.json", "figure file to watch")
	port := flag.Int("port", 8080, "http port")
	flag.Parse()

	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "can't create the logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()
	logger.Info("starting chartserver", zap.String("build", build))

	service := &Service{path: *filePath, logger: logger}
	if err := service.Load(); err != nil {
		logger.Warn("figure not loaded yet", zap.Error(err))
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		logger.Fatal("can't create the watcher", zap.Error(err))
	}
	defer func() { _ = watcher.Close() }()
	go service.Watch(watcher)

	if err := service.AddTo(watcher); err != nil {
		logger.Fatal("can't watch the figure folder", zap.String("file", *filePath), zap.Error(err))
	}

	connStr := fmt.Sprintf("0.0.0.0:%v", *port)
	logger.Info("listening", zap.String("addr", connStr))
	if err := http.ListenAndServe(connStr, service.Routes()); err != nil {
		logger.Fatal("can't start web server", zap.Error(err))
	}
}
