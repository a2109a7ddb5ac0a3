// Package httpapi exposes a courier.Service over HTTP.
// The transport is deliberately thin: it parses parameters, distinguishes
// absent from present-but-empty query values, and maps the service's error
// classes to status codes. All semantics live in the service.
package httpapi

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/rbaliyan/courier"
)

// Server serves the courier HTTP API.
type Server struct {
	svc    courier.Service
	logger *slog.Logger
}

// New creates a Server over svc. A nil logger falls back to slog.Default().
func New(svc courier.Service, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{svc: svc, logger: logger}
}

// Handler builds the route table and returns the ready-to-serve handler.
func (s *Server) Handler() http.Handler {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), RequestID(), RequestLogger(s.logger))

	r.GET("/users", s.listUsers)
	r.GET("/users/:user", s.getUser)
	r.GET("/users/:user/stats", s.userStats)
	r.POST("/add_new_user", s.addUser)
	r.POST("/add_msg", s.addMessage)
	r.POST("/del_msg", s.deleteMessages)
	r.GET("/msgs/:user", s.fetchMessages)

	return r
}

// statusFor maps a service error to an HTTP status code.
// Duplicate users are the only conflict; every other classified core error
// is the caller's fault. Unclassified errors are server-side.
func statusFor(err error) int {
	switch {
	case courier.IsConflict(err):
		return http.StatusConflict
	case courier.IsInvalidArgument(err), courier.IsNotFound(err):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) abortError(c *gin.Context, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", "path", c.FullPath(), "error", err)
	}
	c.AbortWithStatusJSON(status, gin.H{"error": err.Error()})
}

func userJSON(u courier.User) gin.H {
	return gin.H{
		"user":  u.GetID(),
		"phone": u.GetPhone(),
		"email": u.GetEmail(),
		"uri":   "/users/" + u.GetID(),
	}
}

func messagesJSON(msgs []courier.Message) gin.H {
	out := make([]gin.H, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, gin.H{
			"id":   m.GetID(),
			"from": m.GetSenderID(),
			"msg":  m.GetBody(),
		})
	}
	return gin.H{"messages": out}
}

func (s *Server) listUsers(c *gin.Context) {
	ids, err := s.svc.ListUsers(c.Request.Context())
	if err != nil {
		s.abortError(c, err)
		return
	}
	users := make([]gin.H, 0, len(ids))
	for _, id := range ids {
		users = append(users, gin.H{"user": id})
	}
	c.JSON(http.StatusOK, gin.H{"users": users})
}

func (s *Server) getUser(c *gin.Context) {
	u, err := s.svc.GetUser(c.Request.Context(), c.Param("user"))
	if err != nil {
		s.abortError(c, err)
		return
	}
	c.JSON(http.StatusOK, userJSON(u))
}

func (s *Server) userStats(c *gin.Context) {
	stats, err := s.svc.Stats(c.Request.Context(), c.Param("user"))
	if err != nil {
		s.abortError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"messages": stats.TotalMessages,
		"unseen":   stats.UnseenCount,
		"cursor":   stats.Cursor,
	})
}

func (s *Server) addUser(c *gin.Context) {
	u, err := s.svc.CreateUser(c.Request.Context(), courier.UserData{
		ID:    c.PostForm("user"),
		Phone: c.PostForm("phone"),
		Email: c.PostForm("email"),
	})
	if err != nil {
		s.abortError(c, err)
		return
	}
	c.JSON(http.StatusCreated, userJSON(u))
}

func (s *Server) addMessage(c *gin.Context) {
	msg, err := s.svc.Send(c.Request.Context(),
		c.PostForm("to"), c.PostForm("from"), c.PostForm("msg"))
	if err != nil {
		s.abortError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"id":   msg.GetID(),
		"from": msg.GetSenderID(),
		"msg":  msg.GetBody(),
	})
}

func (s *Server) deleteMessages(c *gin.Context) {
	query := c.Request.URL.Query()
	user := query.Get("user")
	if user == "" {
		s.abortError(c, courier.ErrMissingArgument)
		return
	}

	// id is a comma-separated list. A missing or empty id parameter is a
	// caller error; the service rejects malformed entries.
	csv := query.Get("id")
	var ids []string
	if csv != "" {
		ids = strings.Split(csv, ",")
	}

	deleted, err := s.svc.Delete(c.Request.Context(), user, ids)
	if err != nil {
		s.abortError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": deleted})
}

func (s *Server) fetchMessages(c *gin.Context) {
	user := c.Param("user")
	query := c.Request.URL.Query()

	_, wantNew := query["new"]
	lbVals, hasLB := query["lb"]
	ubVals, hasUB := query["ub"]

	// The two fetch modes are distinct operations; mixing them is an error.
	if wantNew && (hasLB || hasUB) {
		s.abortError(c, courier.ErrInvalidArgument)
		return
	}

	if wantNew {
		msgs, err := s.svc.FetchNew(c.Request.Context(), user)
		if err != nil {
			s.abortError(c, err)
			return
		}
		c.JSON(http.StatusOK, messagesJSON(msgs))
		return
	}

	// Present-but-empty bounds are malformed; absent bounds are open.
	lb, err := boundParam(lbVals, hasLB)
	if err != nil {
		s.abortError(c, err)
		return
	}
	ub, err := boundParam(ubVals, hasUB)
	if err != nil {
		s.abortError(c, err)
		return
	}

	msgs, err := s.svc.FetchRange(c.Request.Context(), user, lb, ub)
	if err != nil {
		s.abortError(c, err)
		return
	}
	c.JSON(http.StatusOK, messagesJSON(msgs))
}

// boundParam extracts an optional range bound. Returns "" for absent.
func boundParam(vals []string, present bool) (string, error) {
	if !present {
		return "", nil
	}
	if len(vals) == 0 || vals[0] == "" {
		return "", courier.ErrMissingArgument
	}
	return vals[0], nil
}
