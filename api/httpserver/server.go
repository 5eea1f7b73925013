// Package httpserver exposes the exchange operations over a JSON HTTP API
// and upgrades notification streams to websockets.
package httpserver

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"cross/api/ws"
	"cross/domain/book"
	"cross/domain/user"
	"cross/service"
)

type Server struct {
	svc   *service.OrderService
	users *user.Manager
	hub   *ws.Hub
	log   *zap.Logger

	upgrader websocket.Upgrader
}

func New(svc *service.OrderService, users *user.Manager, hub *ws.Hub, log *zap.Logger) *Server {
	return &Server{
		svc:   svc,
		users: users,
		hub:   hub,
		log:   log,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.POST("/register", s.register)
	r.POST("/login", s.login)
	r.POST("/logout", s.logout)
	r.POST("/updateCredentials", s.updateCredentials)

	r.POST("/orders/limit", s.insertLimitOrder)
	r.POST("/orders/market", s.insertMarketOrder)
	r.POST("/orders/stop", s.insertStopOrder)
	r.POST("/orders/cancel", s.cancelOrder)

	r.GET("/book", s.getOrderBook)
	r.GET("/book/available", s.getAvailableSize)
	r.GET("/orders/stops", s.getUserStopOrders)
	r.GET("/history/:month", s.getPriceHistory)

	r.GET("/ws", s.notifications)

	return r
}

//
// ──────────────────────────────────────────────────────────
// Users
// ──────────────────────────────────────────────────────────
//

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type updateCredentialsRequest struct {
	Username    string `json:"username"`
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword"`
}

type codeResponse struct {
	Response     int    `json:"response"`
	ErrorMessage string `json:"errorMessage"`
}

func code(c *gin.Context, result int, messages map[int]string) {
	c.JSON(http.StatusOK, codeResponse{
		Response:     result,
		ErrorMessage: messages[result],
	})
}

var registerMessages = map[int]string{
	101: "invalid password",
	102: "username not available",
	103: "invalid username",
}

var updateMessages = map[int]string{
	101: "invalid new password",
	102: "username/old password mismatch",
	103: "new password equal to old one",
	105: "unknown user",
}

var loginMessages = map[int]string{
	101: "username/password mismatch",
	102: "user already logged in",
	103: "invalid password",
}

var logoutMessages = map[int]string{
	101: "user not logged in",
}

func (s *Server) register(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, codeResponse{Response: 103, ErrorMessage: "malformed request"})
		return
	}
	code(c, s.users.Register(req.Username, req.Password), registerMessages)
}

func (s *Server) login(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, codeResponse{Response: 103, ErrorMessage: "malformed request"})
		return
	}
	code(c, s.users.Login(req.Username, req.Password), loginMessages)
}

func (s *Server) logout(c *gin.Context) {
	var req struct {
		Username string `json:"username"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, codeResponse{Response: 101, ErrorMessage: "malformed request"})
		return
	}
	code(c, s.users.Logout(req.Username), logoutMessages)
}

func (s *Server) updateCredentials(c *gin.Context) {
	var req updateCredentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, codeResponse{Response: 105, ErrorMessage: "malformed request"})
		return
	}
	code(c, s.users.UpdateCredentials(req.Username, req.OldPassword, req.NewPassword), updateMessages)
}

//
// ──────────────────────────────────────────────────────────
// Orders
// ──────────────────────────────────────────────────────────
//

// Side is a pointer so a request missing the "type" field is distinguishable
// from an explicit "bid" and gets rejected instead of defaulting.
type orderRequest struct {
	Username string     `json:"username"`
	Side     *book.Side `json:"type"`
	Size     int64      `json:"size"`
	Price    int64      `json:"price"`
}

type orderResponse struct {
	OrderID int64 `json:"orderId"`
}

// orderID -1 signals rejection; order submissions never expose a cause.
func rejected(c *gin.Context) {
	c.JSON(http.StatusOK, orderResponse{OrderID: -1})
}

func (s *Server) insertLimitOrder(c *gin.Context) {
	var req orderRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Side == nil || !s.users.IsLoggedIn(req.Username) {
		rejected(c)
		return
	}

	id, err := s.svc.SubmitLimit(req.Username, *req.Side, req.Size, req.Price)
	if err != nil {
		rejected(c)
		return
	}
	c.JSON(http.StatusOK, orderResponse{OrderID: int64(id)})
}

func (s *Server) insertMarketOrder(c *gin.Context) {
	var req orderRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Side == nil || !s.users.IsLoggedIn(req.Username) {
		rejected(c)
		return
	}

	id, err := s.svc.SubmitMarket(req.Username, *req.Side, req.Size)
	if err != nil {
		rejected(c)
		return
	}
	c.JSON(http.StatusOK, orderResponse{OrderID: int64(id)})
}

func (s *Server) insertStopOrder(c *gin.Context) {
	var req orderRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Side == nil || !s.users.IsLoggedIn(req.Username) {
		rejected(c)
		return
	}

	id, err := s.svc.SubmitStop(req.Username, *req.Side, req.Size, req.Price)
	if err != nil {
		rejected(c)
		return
	}
	c.JSON(http.StatusOK, orderResponse{OrderID: int64(id)})
}

var cancelMessages = map[int]string{
	101: "order does not exist or belongs to a different user",
}

func (s *Server) cancelOrder(c *gin.Context) {
	var req struct {
		Username string `json:"username"`
		OrderID  uint64 `json:"orderId"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || !s.users.IsLoggedIn(req.Username) {
		code(c, 101, cancelMessages)
		return
	}

	if err := s.svc.Cancel(req.OrderID, req.Username); err != nil {
		code(c, 101, cancelMessages)
		return
	}
	code(c, user.CodeOK, cancelMessages)
}

//
// ──────────────────────────────────────────────────────────
// Queries
// ──────────────────────────────────────────────────────────
//

func (s *Server) getOrderBook(c *gin.Context) {
	c.JSON(http.StatusOK, s.svc.Book().Snapshot())
}

func (s *Server) getAvailableSize(c *gin.Context) {
	side, err := book.ParseSide(c.Query("type"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	username := c.Query("username")

	c.JSON(http.StatusOK, gin.H{
		"type": side,
		"size": s.svc.Book().AvailableSize(username, side),
	})
}

func (s *Server) getUserStopOrders(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"orders": s.svc.Book().UserStopOrders(c.Query("username")),
	})
}

func (s *Server) getPriceHistory(c *gin.Context) {
	month := c.Param("month")
	days, err := s.svc.History(month)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"month": month,
		"days":  days,
	})
}

//
// ──────────────────────────────────────────────────────────
// Notifications
// ──────────────────────────────────────────────────────────
//

// notifications upgrades the connection and parks it in the hub until the
// client goes away. Only logged-in users receive a stream.
func (s *Server) notifications(c *gin.Context) {
	username := c.Query("username")
	if !s.users.IsLoggedIn(username) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not logged in"})
		return
	}

	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	s.hub.Register(username, conn)

	go func() {
		defer s.hub.Unregister(username, conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}
