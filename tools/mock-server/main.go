// Package main implements a fake LiveLab and Maoyan server for local
// development. It serves shows from a JSON fixture so that `ticket-monitor
// check` and `run` can be pointed at it through the vendors' base_url
// settings without real credentials.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"
)

const (
	livelabCodeOK       = 10000
	livelabCodeNotFound = 40400
	livelabWaitlistTag  = "缺票登记"
	maoyanOnSale        = 2
	maoyanSoldOut       = 3
)

// fixture is the on-disk description of every fake show.
type fixture struct {
	LiveLab map[string]*livelabShow `json:"livelab"`
	Maoyan  map[string]*maoyanShow  `json:"maoyan"`
}

type livelabShow struct {
	Name     string           `json:"name"`
	Performs []livelabPerform `json:"performs"`
}

type livelabPerform struct {
	ID        string        `json:"id"`
	Name      string        `json:"name"`
	SeatPlans []livelabPlan `json:"seatPlans"`
}

type livelabPlan struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Price     float64 `json:"price"`
	Available bool    `json:"available"`
}

type maoyanShow struct {
	Name       string       `json:"name"`
	OnSaleTime int64        `json:"onSaleTime"`
	Tiers      []maoyanTier `json:"tiers"`
}

type maoyanTier struct {
	Description string  `json:"description"`
	Price       float64 `json:"price"`
	Remaining   int     `json:"remaining"`
	OnSale      bool    `json:"onSale"`
}

// server holds the fixture and flips availability every toggleEvery polls
// of a show, so a running monitor sees seats come and go.
type server struct {
	logger      *slog.Logger
	fix         *fixture
	toggleEvery int

	mu     sync.Mutex
	polls  map[string]int
	orders int
}

func main() {
	port := flag.Int("port", 8089, "port to listen on")
	fixtureFile := flag.String("fixture", "tools/mock-server/testdata/shows.json", "path to shows fixture")
	toggle := flag.Int("toggle", 0, "flip seat availability every N polls of a show (0 disables)")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))

	fix, err := loadFixture(*fixtureFile)
	if err != nil {
		logger.Error("failed to load fixture", "path", *fixtureFile, "error", err)
		os.Exit(1)
	}
	logger.Info("loaded fixture", "livelab_shows", len(fix.LiveLab), "maoyan_shows", len(fix.Maoyan))

	s := newServer(logger, fix, *toggle)

	addr := fmt.Sprintf(":%d", *port)
	logger.Info("starting fake vendor server", "addr", addr)

	srv := &http.Server{
		Addr:         addr,
		Handler:      requestLogger(logger, s.routes()),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	if err := srv.ListenAndServe(); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func newServer(logger *slog.Logger, fix *fixture, toggleEvery int) *server {
	return &server{
		logger:      logger,
		fix:         fix,
		toggleEvery: toggleEvery,
		polls:       make(map[string]int),
	}
}

func (s *server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /performance/app/project/get_project_info", s.livelabProjectHandler)
	mux.HandleFunc("GET /performance/app/project/get_performs", s.livelabPerformsHandler)
	mux.HandleFunc("POST /order/app/center/v3/create", s.livelabOrderHandler)
	mux.HandleFunc("GET /my/odea/show/tickets", s.maoyanTicketsHandler)
	return mux
}

func loadFixture(path string) (*fixture, error) {
	data, err := os.ReadFile(path) //nolint:gosec // fixture path from trusted CLI flag
	if err != nil {
		return nil, fmt.Errorf("reading fixture: %w", err)
	}
	var fix fixture
	if err := json.Unmarshal(data, &fix); err != nil {
		return nil, fmt.Errorf("parsing fixture: %w", err)
	}
	return &fix, nil
}

func requestLogger(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger.Debug("request", "method", r.Method, "path", r.URL.Path, "query", r.URL.RawQuery)
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	//nolint:errcheck,gosec // best-effort write to HTTP response in mock server
	json.NewEncoder(w).Encode(v)
}

// flipped counts a poll of key and reports whether availability is
// currently inverted.
func (s *server) flipped(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.polls[key]++
	if s.toggleEvery <= 0 {
		return false
	}
	return ((s.polls[key]-1)/s.toggleEvery)%2 == 1
}

func (s *server) livelabShow(w http.ResponseWriter, r *http.Request) (*livelabShow, bool) {
	if r.Header.Get("Authorization") == "" {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"code": 401, "msg": "login required"})
		return nil, false
	}
	id := r.URL.Query().Get("project_id")
	show, ok := s.fix.LiveLab[id]
	if !ok {
		writeJSON(w, http.StatusOK, map[string]any{"code": livelabCodeNotFound, "msg": "project not found"})
		return nil, false
	}
	return show, true
}

func (s *server) livelabProjectHandler(w http.ResponseWriter, r *http.Request) {
	show, ok := s.livelabShow(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"code": livelabCodeOK,
		"msg":  "success",
		"data": map[string]any{"projectName": show.Name},
	})
}

func (s *server) livelabPerformsHandler(w http.ResponseWriter, r *http.Request) {
	show, ok := s.livelabShow(w, r)
	if !ok {
		return
	}
	flip := s.flipped("livelab/" + r.URL.Query().Get("project_id"))

	performs := make([]map[string]any, 0, len(show.Performs))
	for _, p := range show.Performs {
		plans := make([]map[string]any, 0, len(p.SeatPlans))
		for _, sp := range p.SeatPlans {
			tags := []map[string]string{}
			if sp.Available == flip {
				tags = append(tags, map[string]string{"tag": livelabWaitlistTag})
			}
			plans = append(plans, map[string]any{
				"seatPlanId":   sp.ID,
				"seatPlanName": sp.Name,
				"price":        sp.Price,
				"display":      0,
				"tags":         tags,
			})
		}
		performs = append(performs, map[string]any{"id": p.ID, "name": p.Name, "seatPlans": plans})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"code": livelabCodeOK,
		"msg":  "success",
		"data": map[string]any{
			"performInfos": []map[string]any{{"performInfo": performs}},
		},
	})
}

type orderRequest struct {
	ProjectID   string   `json:"projectId"`
	PerformID   string   `json:"performId"`
	SeatPlanIDs []string `json:"seatPlanIds"`
	ContactName string   `json:"contactName"`
}

func (s *server) livelabOrderHandler(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("Authorization") == "" {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"code": 401, "msg": "login required"})
		return
	}
	var req orderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"code": 400, "msg": "malformed order"})
		return
	}
	if _, ok := s.fix.LiveLab[req.ProjectID]; !ok || len(req.SeatPlanIDs) == 0 {
		writeJSON(w, http.StatusOK, map[string]any{"code": livelabCodeNotFound, "msg": "no such seat plan"})
		return
	}

	s.mu.Lock()
	s.orders++
	n := s.orders
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{
		"code": 0,
		"msg":  "success",
		"data": map[string]any{"orderNumber": fmt.Sprintf("MOCK%06d", n)},
	})
	s.logger.Info("order created", "project_id", req.ProjectID, "perform_id", req.PerformID,
		"seat_plans", req.SeatPlanIDs, "contact", req.ContactName)
}

func (s *server) maoyanTicketsHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if q.Get("token") == "" {
		writeJSON(w, http.StatusOK, map[string]any{"success": false, "msg": "token missing"})
		return
	}
	id := q.Get("showId")
	show, ok := s.fix.Maoyan[id]
	if !ok {
		writeJSON(w, http.StatusOK, map[string]any{"success": false, "msg": "show not found"})
		return
	}
	flip := s.flipped("maoyan/" + id)

	tiers := make([]map[string]any, 0, len(show.Tiers))
	for _, t := range show.Tiers {
		onSale := t.OnSale != flip
		status, remaining := maoyanSoldOut, 0
		if onSale {
			status, remaining = maoyanOnSale, max(t.Remaining, 1)
		}
		tiers = append(tiers, map[string]any{
			"description":    t.Description,
			"showStatus":     status,
			"remainingStock": remaining,
			"ticketPriceVO":  map[string]any{"sellPrice": t.Price},
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"data": map[string]any{
			"showVO":    map[string]any{"showName": show.Name, "onSaleTime": show.OnSaleTime},
			"ticketsVO": tiers,
		},
	})
}
