package http

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/walkconquest/backend/internal/domain"
	"github.com/walkconquest/backend/internal/ranking"
	"github.com/walkconquest/backend/internal/service"
	"github.com/walkconquest/backend/internal/territory"
	"github.com/walkconquest/backend/pkg/utils"
)

const (
	defaultRadiusKm = 5.0
	maxRadiusKm     = 50.0
	maxListLimit    = 1000
	defaultName     = "Player"
)

// Handler contains all HTTP handlers
type Handler struct {
	territorySvc   *service.TerritoryService
	conquestSvc    *service.ConquestService
	userSvc        *service.UserService
	leaderboardSvc *service.LeaderboardService
	repo           service.Repository
}

// NewHandler creates a new handler
func NewHandler(
	territorySvc *service.TerritoryService,
	conquestSvc *service.ConquestService,
	userSvc *service.UserService,
	leaderboardSvc *service.LeaderboardService,
	repo service.Repository,
) *Handler {
	return &Handler{
		territorySvc:   territorySvc,
		conquestSvc:    conquestSvc,
		userSvc:        userSvc,
		leaderboardSvc: leaderboardSvc,
		repo:           repo,
	}
}

type createTerritoryRequest struct {
	OwnerID   string              `json:"ownerId"`
	OwnerName string              `json:"ownerName"`
	Strategy  string              `json:"strategy"`
	Route     []domain.Coordinate `json:"route"`
	Region    string              `json:"region"`
}

type conflictRequest struct {
	Polygon []domain.Coordinate `json:"polygon"`
}

type conquerRequest struct {
	OwnerID   string `json:"ownerId"`
	OwnerName string `json:"ownerName"`
}

type profileRequest struct {
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
	PhotoURL    string `json:"photoUrl"`
}

func ownerName(name string) string {
	if name == "" {
		return defaultName
	}
	return name
}

// HealthCheck returns service health status
func (h *Handler) HealthCheck(c *fiber.Ctx) error {
	storage := "ok"
	if err := h.repo.Health(c.Context()); err != nil {
		storage = "unavailable"
	}
	return c.JSON(fiber.Map{
		"status":  "ok",
		"service": "walkconquest-backend",
		"storage": storage,
	})
}

// CreateTerritories turns a finished walk into territories
func (h *Handler) CreateTerritories(c *fiber.Ctx) error {
	var req createTerritoryRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	if req.OwnerID == "" {
		return fiber.NewError(fiber.StatusBadRequest, "ownerId is required")
	}
	strategy, err := territory.ParseStrategy(req.Strategy)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	result, err := h.territorySvc.Create(c.Context(), service.CreateRequest{
		Owner:    domain.Owner{ID: req.OwnerID, Name: ownerName(req.OwnerName)},
		Strategy: strategy,
		Route:    req.Route,
		Region:   req.Region,
	})
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"data":    result,
	})
}

// CheckConflicts lists stored territories a candidate outline overlaps
func (h *Handler) CheckConflicts(c *fiber.Ctx) error {
	var req conflictRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}

	conflicts, err := h.territorySvc.CheckConflicts(c.Context(), req.Polygon)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    conflicts,
		"count":   len(conflicts),
	})
}

// ListTerritories returns stored territories, best effort
func (h *Handler) ListTerritories(c *fiber.Ctx) error {
	limit := utils.ClampInt(c.QueryInt("limit", 0), 0, maxListLimit)
	data := h.territorySvc.All(c.Context(), limit)

	return c.JSON(fiber.Map{
		"success": true,
		"data":    data,
		"count":   len(data),
	})
}

// NearTerritories returns territories whose centroid is within radiusKm of lat,lng
func (h *Handler) NearTerritories(c *fiber.Ctx) error {
	lat, err := strconv.ParseFloat(c.Query("lat"), 64)
	if err != nil || lat < -90 || lat > 90 {
		return fiber.NewError(fiber.StatusBadRequest, "lat must be a latitude in degrees")
	}
	lng, err := strconv.ParseFloat(c.Query("lng"), 64)
	if err != nil || lng < -180 || lng > 180 {
		return fiber.NewError(fiber.StatusBadRequest, "lng must be a longitude in degrees")
	}
	radius := utils.Clamp(c.QueryFloat("radiusKm", defaultRadiusKm), 0.1, maxRadiusKm)

	data := h.territorySvc.Near(c.Context(), lat, lng, radius)
	return c.JSON(fiber.Map{
		"success":  true,
		"data":     data,
		"count":    len(data),
		"radiusKm": utils.RoundTo(radius, 2),
	})
}

// TerritoriesGeoJSON exports territories as a GeoJSON feature collection
func (h *Handler) TerritoriesGeoJSON(c *fiber.Ctx) error {
	limit := utils.ClampInt(c.QueryInt("limit", 0), 0, maxListLimit)
	fc := h.territorySvc.GeoJSON(c.Context(), limit)

	body, err := fc.MarshalJSON()
	if err != nil {
		return err
	}
	c.Set(fiber.HeaderContentType, "application/geo+json")
	return c.Send(body)
}

// GetTerritory returns one territory
func (h *Handler) GetTerritory(c *fiber.Ctx) error {
	t, err := h.territorySvc.Get(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"success": true,
		"data":    t,
	})
}

// ConquerTerritory transfers a territory to the caller
func (h *Handler) ConquerTerritory(c *fiber.Ctx) error {
	var req conquerRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	if req.OwnerID == "" {
		return fiber.NewError(fiber.StatusBadRequest, "ownerId is required")
	}

	owner := domain.Owner{ID: req.OwnerID, Name: ownerName(req.OwnerName)}
	res, err := h.conquestSvc.Conquer(c.Context(), c.Params("id"), owner)
	if err != nil && res.Territory.ID == "" {
		return err
	}

	resp := fiber.Map{
		"success": true,
		"data":    res,
	}
	if err != nil {
		// ownership moved but a stat write failed
		resp["warning"] = err.Error()
	}
	return c.JSON(resp)
}

// GetUser returns a profile with rank and level
func (h *Handler) GetUser(c *fiber.Ctx) error {
	p, err := h.userSvc.Get(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"success": true,
		"data":    p,
	})
}

// GetUserTerritories lists a user's territories, newest conquest first
func (h *Handler) GetUserTerritories(c *fiber.Ctx) error {
	data, err := h.territorySvc.ByOwner(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"success": true,
		"data":    data,
		"count":   len(data),
	})
}

// PutUser creates or updates a profile
func (h *Handler) PutUser(c *fiber.Ctx) error {
	var req profileRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}

	p, err := h.userSvc.Save(c.Context(), domain.User{
		ID:          c.Params("id"),
		Email:       req.Email,
		DisplayName: req.DisplayName,
		PhotoURL:    req.PhotoURL,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"success": true,
		"data":    p,
	})
}

// GetLeaderboard ranks the top users by the requested metric
func (h *Handler) GetLeaderboard(c *fiber.Ctx) error {
	metric, err := ranking.ParseMetric(c.Query("metric"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	board, err := h.leaderboardSvc.Board(c.Context(), metric, c.Query("userId"))
	if err != nil {
		return err
	}
	for i := range board.Entries {
		board.Entries[i].Value = utils.RoundTo(board.Entries[i].Value, 2)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    board,
	})
}

// ErrorHandler renders handler errors as {"error": true, "message": ...}
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	var fe *fiber.Error
	switch {
	case errors.As(err, &fe):
		code, message = fe.Code, fe.Message
	case errors.Is(err, domain.ErrInvalidGeometry):
		code, message = fiber.StatusUnprocessableEntity, err.Error()
	case errors.Is(err, domain.ErrNotFound):
		code, message = fiber.StatusNotFound, "Not found"
	case errors.Is(err, domain.ErrAlreadyOwner):
		code, message = fiber.StatusConflict, "Territory already owned by this user"
	case errors.Is(err, domain.ErrStorageFailure):
		code, message = fiber.StatusServiceUnavailable, "Storage unavailable"
	}

	return c.Status(code).JSON(fiber.Map{
		"error":   true,
		"message": message,
	})
}
