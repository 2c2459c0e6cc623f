package resourcechart

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"

	"github.com/sirupsen/logrus"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

// Pending submissions per websocket. Older ones are dropped when it fills.
const bufferSize = 4

type HttpServer struct {
	broadcaster *ChartBroadcaster
	host        string
	port        uint16
	page        PageOptions
	metrics     *Metrics
	mux         *http.ServeMux
	logger      logrus.FieldLogger

	OpenBrowser bool
}

func NewHttpServer(broadcaster *ChartBroadcaster, host string, port uint16, page PageOptions, metrics *Metrics) *HttpServer {
	if metrics == nil {
		metrics = NewMetrics()
	}

	page.Live = true

	s := &HttpServer{
		broadcaster: broadcaster,
		host:        host,
		port:        port,
		page:        page,
		metrics:     metrics,
		mux:         http.NewServeMux(),
		logger:      logrus.WithField("tag", "HttpServer"),
	}

	s.mux.HandleFunc("/", s.handleIndex)
	s.mux.HandleFunc("/chart.js", s.handleScript)
	s.mux.HandleFunc("/options", s.handleOptions)
	s.mux.HandleFunc("/status", s.handleStatus)
	s.mux.HandleFunc("/ws", s.handleWebSocket)
	s.mux.Handle("/metrics", metrics.Handler())

	return s
}

func (s *HttpServer) Handler() http.Handler {
	return s.mux
}

func setCORSHeaders(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Headers", "content-type")
	w.Header().Set("Access-Control-Allow-Methods", "*")
}

func (s *HttpServer) handleIndex(w http.ResponseWriter, req *http.Request) {
	if req.URL.Path != "/" {
		http.NotFound(w, req)
		return
	}

	var buf bytes.Buffer
	if err := WritePage(&buf, s.page); err != nil {
		s.logger.WithError(err).Error("failed to render page")
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(buf.Bytes())
}

func (s *HttpServer) handleScript(w http.ResponseWriter, req *http.Request) {
	setCORSHeaders(w)

	submission, ok := s.broadcaster.Latest()
	if !ok {
		http.Error(w, "no chart rendered yet", http.StatusServiceUnavailable)
		return
	}

	var buf bytes.Buffer
	if err := NewScriptEngine(&buf).StockChart(submission.Target, submission.Options); err != nil {
		s.logger.WithError(err).Error("failed to render script")
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/javascript; charset=utf-8")
	w.Write(buf.Bytes())
}

func (s *HttpServer) handleOptions(w http.ResponseWriter, req *http.Request) {
	setCORSHeaders(w)

	submission, ok := s.broadcaster.Latest()
	if !ok {
		http.Error(w, "no chart rendered yet", http.StatusServiceUnavailable)
		return
	}

	s.writeJSON(w, submission)
}

func (s *HttpServer) handleStatus(w http.ResponseWriter, req *http.Request) {
	setCORSHeaders(w)
	s.writeJSON(w, s.broadcaster.Status())
}

func (s *HttpServer) writeJSON(w http.ResponseWriter, value any) {
	data, err := json.Marshal(value)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Write(data)
}

func (s *HttpServer) handleWebSocket(w http.ResponseWriter, req *http.Request) {
	c, err := websocket.Accept(w, req, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		s.logger.WithError(err).Warn("failed to accept new websocket connection")
		return
	}

	ctx := req.Context()
	ctx = c.CloseRead(ctx) // Write only.

	channel := make(chan ChartSubmission, bufferSize)
	wg := sync.WaitGroup{}
	wg.Add(1)

	go func() {
		defer wg.Done()
		for {
			select {
			case submission := <-channel:
				err := wsjson.Write(ctx, c, submission)
				if err != nil {
					s.logger.WithError(err).Warn("websocket write failed and closed")
					return
				}
			case <-ctx.Done():
				s.logger.Info("client closed connection or context canceled")
				c.Close(websocket.StatusNormalClosure, "")
				return
			}
		}
	}()

	// Registered here rather than in the writer goroutine, which is already
	// draining the channel.
	s.broadcaster.RegisterChannel(ctx, channel)

	wg.Wait()
	s.broadcaster.DeregisterChannel(ctx, channel)
}

func (s *HttpServer) Addr() string {
	return net.JoinHostPort(s.host, strconv.Itoa(int(s.port)))
}

func (s *HttpServer) Run() error {
	url := fmt.Sprintf("http://%s", s.Addr())
	s.logger.Infof("starting HTTP server at %s", url)

	if s.OpenBrowser {
		openBrowser(url)
	}

	return http.ListenAndServe(s.Addr(), s.mux)
}
