package adms

import (
	"context"
	"io"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Ack tokens the terminal understands. Anything else makes it misbehave.
const (
	AckOK    = "OK"
	AckError = "ERROR"
)

// Tracker marks a device as alive; best effort.
type Tracker interface {
	TouchLastSeen(ctx context.Context, serial string) error
}

// Handler exposes the three endpoints the terminal pushes to and polls.
type Handler struct {
	intake  *Intake
	tracker Tracker
}

// NewHandler creates the device-facing handler. tracker may be nil.
func NewHandler(intake *Intake, tracker Tracker) *Handler {
	return &Handler{intake: intake, tracker: tracker}
}

// Register mounts the device routes. They are deliberately outside any auth
// or rate-limit middleware: the terminal speaks plain text and its retry
// loop must not be broken.
func (h *Handler) Register(r gin.IRouter) {
	r.POST("/iclock/cdata", h.PostCData)
	r.GET("/iclock/cdata", h.GetCData)
	r.GET("/iclock/getrequest", h.GetRequest)
}

// PostCData receives a pushed payload. The terminal only understands the two
// plain-text tokens; a missing serial means "unknown device", never a reject.
func (h *Handler) PostCData(c *gin.Context) {
	serial := deviceSerial(c)
	if h.tracker != nil && serial != "" {
		if err := h.tracker.TouchLastSeen(c.Request.Context(), serial); err != nil {
			log.Printf("touch last seen for %q failed: %v", serial, err)
		}
	}

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		pushesTotal.WithLabelValues(AckError).Inc()
		c.String(http.StatusInternalServerError, AckError)
		return
	}

	if err := h.intake.Process(c.Request.Context(), serial, string(body)); err != nil {
		log.Printf("device %q push failed: %v", serial, err)
		pushesTotal.WithLabelValues(AckError).Inc()
		c.String(http.StatusInternalServerError, AckError)
		return
	}

	pushesTotal.WithLabelValues(AckOK).Inc()
	c.String(http.StatusOK, AckOK)
}

// GetCData answers the sync/options poll. There is nothing to sync.
func (h *Handler) GetCData(c *gin.Context) {
	c.String(http.StatusOK, AckOK)
}

// GetRequest answers the pending-commands poll. No command queue exists.
func (h *Handler) GetRequest(c *gin.Context) {
	c.String(http.StatusOK, AckOK)
}

// The serial arrives as an SN header or ?SN= query param depending on
// firmware generation.
func deviceSerial(c *gin.Context) string {
	if sn := c.GetHeader("SN"); sn != "" {
		return sn
	}
	return c.Query("SN")
}
