package devserver

import (
	"log"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/lekos21/moneychat/internal/domain"
)

// Server exposes the development backend over HTTP.
type Server struct {
	store *Store
	token string
	app   *fiber.App
}

func NewServer(store *Store, token string) *Server {
	s := &Server{store: store, token: token, app: fiber.New()}
	s.routes()
	return s
}

// Listen blocks serving HTTP on addr.
func (s *Server) Listen(addr string) error {
	return s.app.Listen(addr)
}

// App exposes the underlying fiber app for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

func (s *Server) routes() {
	s.app.Use(s.requireBearer)

	s.app.Get("/chat/messages", s.listMessages)
	s.app.Post("/chat/messages", s.createMessage)
	s.app.Delete("/chat/messages", s.clearMessages)
	s.app.Delete("/chat/messages/:id", s.deleteMessage)

	s.app.Get("/expenses/", s.listExpenses)
	s.app.Post("/expenses/", s.createExpense)
	s.app.Get("/expenses/:id", s.getExpense)
	s.app.Delete("/expenses/:id", s.deleteExpense)

	s.app.Get("/tags/", s.listTags)
	s.app.Get("/tags/:facet/:tagID", s.getTag)

	s.app.Post("/agents/expense_parser/", s.parseSingle)
	s.app.Post("/agents/multi_expense_parser/", s.parseMulti)
}

func (s *Server) requireBearer(c *fiber.Ctx) error {
	header := c.Get("Authorization")
	token := strings.TrimPrefix(header, "Bearer ")
	if token == "" || token == header || token != s.token {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid or missing bearer token"})
	}
	return c.Next()
}

func (s *Server) listMessages(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 30)
	if limit <= 0 || limit > 500 {
		limit = 30
	}
	msgs, err := s.store.ListMessages(c.Context(), limit)
	if err != nil {
		log.Printf("list messages: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to list messages"})
	}
	return c.JSON(msgs)
}

func (s *Server) createMessage(c *fiber.Ctx) error {
	var m domain.Message
	if err := c.BodyParser(&m); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid message body"})
	}
	if m.Content == "" {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": "content is required"})
	}
	if m.Type == "" {
		m.Type = domain.MessageUser
	}
	m.ID = uuid.NewString()
	m.Timestamp = Now()
	if err := s.store.InsertMessage(c.Context(), m); err != nil {
		log.Printf("create message: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to save message"})
	}
	return c.Status(fiber.StatusCreated).JSON(m)
}

func (s *Server) deleteMessage(c *fiber.Ctx) error {
	found, err := s.store.DeleteMessage(c.Context(), c.Params("id"))
	if err != nil {
		log.Printf("delete message: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to delete message"})
	}
	if !found {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "message not found"})
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) clearMessages(c *fiber.Ctx) error {
	if err := s.store.ClearMessages(c.Context()); err != nil {
		log.Printf("clear messages: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to clear messages"})
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) listExpenses(c *fiber.Ctx) error {
	expenses, err := s.store.ListExpenses(c.Context())
	if err != nil {
		log.Printf("list expenses: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to list expenses"})
	}
	return c.JSON(expenses)
}

func (s *Server) createExpense(c *fiber.Ctx) error {
	var e domain.Expense
	if err := c.BodyParser(&e); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid expense body"})
	}
	if !e.Valid() {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": "amount must be positive"})
	}
	e.ID = uuid.NewString()
	if e.Timestamp.IsZero() {
		e.Timestamp = Now()
	}
	if err := s.store.InsertExpense(c.Context(), e); err != nil {
		log.Printf("create expense: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to save expense"})
	}
	return c.Status(fiber.StatusCreated).JSON(e)
}

func (s *Server) getExpense(c *fiber.Ctx) error {
	e, err := s.store.GetExpense(c.Context(), c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "expense not found"})
	}
	return c.JSON(e)
}

func (s *Server) deleteExpense(c *fiber.Ctx) error {
	found, err := s.store.DeleteExpense(c.Context(), c.Params("id"))
	if err != nil {
		log.Printf("delete expense: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to delete expense"})
	}
	if !found {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "expense not found"})
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) listTags(c *fiber.Ctx) error {
	tags, err := s.store.ListTags(c.Context())
	if err != nil {
		log.Printf("list tags: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to list tags"})
	}
	return c.JSON(tags)
}

func (s *Server) getTag(c *fiber.Ctx) error {
	tag, err := s.store.GetTag(c.Context(), c.Params("facet"), c.Params("tagID"))
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "tag not found"})
	}
	return c.JSON(tag)
}

type parseRequest struct {
	Text     string `json:"text"`
	SaveToDB bool   `json:"save_to_db"`
}

func (s *Server) parseSingle(c *fiber.Ctx) error {
	var req parseRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	e := parseOne(req.Text)
	if e == nil {
		// Zero amount signals parse failure to the client.
		return c.JSON(domain.Expense{RawText: req.Text})
	}
	e.Timestamp = Now()
	if req.SaveToDB {
		e.ID = uuid.NewString()
		if err := s.store.InsertExpense(c.Context(), *e); err != nil {
			log.Printf("save parsed expense: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to save expense"})
		}
	}
	return c.JSON(e)
}

func (s *Server) parseMulti(c *fiber.Ctx) error {
	var req parseRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	expenses := parseMany(req.Text)
	if len(expenses) == 0 {
		return c.JSON(fiber.Map{
			"expenses":    []domain.Expense{},
			"total_count": 0,
			"error":       "no expenses found",
		})
	}
	for i := range expenses {
		expenses[i].Timestamp = Now()
		if req.SaveToDB {
			expenses[i].ID = uuid.NewString()
			if err := s.store.InsertExpense(c.Context(), expenses[i]); err != nil {
				log.Printf("save parsed expense: %v", err)
				return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to save expense"})
			}
		}
	}
	return c.JSON(fiber.Map{
		"expenses":    expenses,
		"total_count": len(expenses),
		"error":       "",
	})
}
