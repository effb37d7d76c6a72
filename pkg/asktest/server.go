// Package asktest provides a scriptable /ask server for tests.
package asktest

import (
	"encoding/json"
	"net/http/httptest"
	"sync"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"

	"github.com/papercomputeco/querybot/pkg/ask"
)

// Server is an httptest server answering POST /ask with a fiber handler.
type Server struct {
	*httptest.Server

	mu      sync.Mutex
	queries []string
}

// NewServer starts a server whose /ask route is served by handler. Every
// decoded query is recorded before handler runs.
func NewServer(handler fiber.Handler) *Server {
	s := &Server{}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})

	app.Post("/ask", func(c *fiber.Ctx) error {
		var req ask.Request
		if err := json.Unmarshal(c.Body(), &req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(ask.ErrorResponse{Error: "invalid request body"})
		}

		s.mu.Lock()
		s.queries = append(s.queries, req.Query)
		s.mu.Unlock()

		return handler(c)
	})

	s.Server = httptest.NewServer(adaptor.FiberApp(app))
	return s
}

// Queries returns every query received so far, in arrival order.
func (s *Server) Queries() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.queries...)
}

// Summary answers with {"response": {"summary": text}}.
func Summary(text string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"response": fiber.Map{
				"raw_results": []fiber.Map{},
				"summary":     text,
			},
		})
	}
}

// Echo answers with the query itself as the summary.
func Echo() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req ask.Request
		_ = json.Unmarshal(c.Body(), &req)
		return Summary(req.Query)(c)
	}
}

// Raw answers with status and the body bytes verbatim.
func Raw(status int, body string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
		return c.Status(status).SendString(body)
	}
}

// Failure answers with status and {"error": message}.
func Failure(status int, message string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.Status(status).JSON(ask.ErrorResponse{Error: message})
	}
}

// Gate holds every request until Release is called, then delegates to next.
// Entered receives one value per request that reached the gate.
type Gate struct {
	Entered chan string
	release chan struct{}
	once    sync.Once
	next    fiber.Handler
}

// NewGate wraps next.
func NewGate(next fiber.Handler) *Gate {
	return &Gate{
		Entered: make(chan string, 16),
		release: make(chan struct{}),
		next:    next,
	}
}

// Handler is the fiber handler to pass to NewServer.
func (g *Gate) Handler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req ask.Request
		_ = json.Unmarshal(c.Body(), &req)
		g.Entered <- req.Query
		<-g.release
		return g.next(c)
	}
}

// Release lets all held and future requests through. Safe to call twice.
func (g *Gate) Release() {
	g.once.Do(func() { close(g.release) })
}
