package httpapi

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/valyala/fasthttp"

	"github.com/i474232898/weather-logbook/internal/config"
	"github.com/i474232898/weather-logbook/internal/weather"
)

var validate = validator.New()

const keepAliveInterval = 30 * time.Second

// Deps groups what the routes read and drive.
type Deps struct {
	Tracker  *weather.Tracker
	Settings *config.SettingsFile
	Hub      *weather.Hub

	// Now defaults to time.Now when nil.
	Now func() time.Time
}

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, deps Deps) {
	if deps.Now == nil {
		deps.Now = time.Now
	}

	v1 := app.Group("/api/v1")

	v1.Get("/weather", func(c *fiber.Ctx) error {
		state := deps.Tracker.Active().State()
		return c.JSON(newWeatherResponse(state, deps.Settings.Get().Units, deps.Now()))
	})

	v1.Post("/weather/refresh", func(c *fiber.Ctx) error {
		notices := deps.Tracker.Refresh(c.UserContext())
		status := fiber.StatusOK
		if len(notices) == 1 && notices[0].Kind == weather.NoticeInProgress {
			status = fiber.StatusConflict
		}
		return c.Status(status).JSON(fiber.Map{"notices": notices})
	})

	v1.Put("/weather/selected", func(c *fiber.Ctx) error {
		var req selectRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		svc := deps.Tracker.Active()
		if err := svc.Select(*req.Index); err != nil {
			if errors.Is(err, weather.ErrInvalidSelection) {
				return fiber.NewError(fiber.StatusBadRequest, err.Error())
			}
			return err
		}
		return c.JSON(newWeatherResponse(svc.State(), deps.Settings.Get().Units, deps.Now()))
	})

	v1.Get("/weather/records/:index/raw", func(c *fiber.Ctx) error {
		index, err := c.ParamsInt("index")
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "index must be an integer")
		}
		records := deps.Tracker.Active().State().Records
		if index < 0 || index >= len(records) {
			return fiber.NewError(fiber.StatusNotFound, "no record at that index")
		}
		c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
		return c.Send(records[index].Raw())
	})

	v1.Get("/settings", func(c *fiber.Ctx) error {
		return c.JSON(deps.Settings.Get())
	})

	v1.Put("/settings", func(c *fiber.Ctx) error {
		var next config.Settings
		if err := c.BodyParser(&next); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}

		old := deps.Settings.Get()
		if err := deps.Settings.Update(next); err != nil {
			var verrs validator.ValidationErrors
			if errors.As(err, &verrs) {
				return fiber.NewError(fiber.StatusBadRequest, err.Error())
			}
			log.Printf("ERROR: saving settings: %v", err)
			return fiber.NewError(fiber.StatusInternalServerError, "failed to save settings")
		}

		resp := fiber.Map{"settings": next}
		if next.APIKey != old.APIKey || next.Location != old.Location {
			// New key or place: fetch right away.
			resp["notices"] = deps.Tracker.Refresh(c.UserContext())
		} else if deps.Hub != nil {
			deps.Hub.Publish(weather.Event{Type: weather.EventSettings, Location: next.Location.Key()})
		}
		return c.JSON(resp)
	})

	v1.Get("/events", func(c *fiber.Ctx) error {
		if deps.Hub == nil {
			return fiber.NewError(fiber.StatusNotImplemented, "events are not enabled")
		}

		c.Set(fiber.HeaderContentType, "text/event-stream")
		c.Set(fiber.HeaderCacheControl, "no-cache")
		c.Set(fiber.HeaderConnection, "keep-alive")

		events, cancel := deps.Hub.Subscribe()
		c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
			defer cancel()
			streamEvents(w, events)
		}))
		return nil
	})
}

// streamEvents writes events in SSE framing until the channel closes or the
// client goes away.
func streamEvents(w *bufio.Writer, events <-chan weather.Event) {
	ticker := time.NewTicker(keepAliveInterval)
	defer ticker.Stop()

	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return
			}
			if err := writeEvent(w, ev); err != nil {
				return
			}
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": keep-alive\n\n"); err != nil {
				return
			}
			if err := w.Flush(); err != nil {
				return
			}
		}
	}
}

func writeEvent(w *bufio.Writer, ev weather.Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	if ev.Notice != nil {
		fmt.Fprintf(w, "id: %s\n", ev.Notice.ID)
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Type, data)
	return w.Flush()
}

// selectRequest is the body of PUT /weather/selected.
type selectRequest struct {
	Index *int `json:"index" validate:"required,min=0"`
}

// weatherResponse is what the display layer renders.
type weatherResponse struct {
	Location     string               `json:"location"`
	Pretty       string               `json:"pretty"`
	Selected     int                  `json:"selected"`
	Refreshing   bool                 `json:"refreshing"`
	LastUpdated  string               `json:"lastUpdated"`
	SelectedTime string               `json:"selectedTime"`
	Current      *weather.RecordView  `json:"current,omitempty"`
	Records      []weather.RecordView `json:"records"`
}

func newWeatherResponse(state weather.State, units weather.Units, now time.Time) weatherResponse {
	resp := weatherResponse{
		Location:    state.Location.Key(),
		Pretty:      state.Location.Pretty(),
		Selected:    state.Selected,
		Refreshing:  state.Refreshing,
		LastUpdated: weather.Unknown,
		Records:     make([]weather.RecordView, 0, len(state.Records)),
	}

	for _, rec := range state.Records {
		resp.Records = append(resp.Records, rec.View(units, now))
	}
	if len(state.Records) > 0 {
		resp.LastUpdated = state.Records[0].FormattedTime(" ", now)
	}
	if sel, ok := state.SelectedRecord(); ok {
		view := resp.Records[state.Selected]
		resp.Current = &view
		// Only shown when looking at an older record.
		if state.Selected != 0 {
			resp.SelectedTime = sel.FormattedTime(" ", now)
		}
	}
	return resp
}
