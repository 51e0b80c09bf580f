package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/roomdang/roomdang-backend/api/controllers"
	"github.com/roomdang/roomdang-backend/api/middleware"
	"github.com/roomdang/roomdang-backend/internal/alarms"
	"github.com/roomdang/roomdang-backend/internal/boards"
	"github.com/roomdang/roomdang-backend/internal/members"
	"github.com/roomdang/roomdang-backend/internal/messages"
	"github.com/roomdang/roomdang-backend/internal/parties"
	"github.com/roomdang/roomdang-backend/pkg/config"
	"github.com/roomdang/roomdang-backend/pkg/logger"
)

// Services bundles everything the router wires into handlers.
type Services struct {
	Members    members.Service
	Alarms     alarms.Service
	Dispatcher *alarms.Dispatcher
	Messages   messages.Service
	Parties    parties.Service
	Boards     boards.Service
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	healthDeps map[string]controllers.Pinger,
	svcs Services,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, healthDeps))
	})

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.Post("/register", controllers.AuthRegister(svcs.Members, logg))
		r.Post("/login", controllers.AuthLogin(svcs.Members, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))

		r.Route("/alarms", func(r chi.Router) {
			r.Get("/subscribe", controllers.SubscribeAlarms(svcs.Dispatcher, logg))
			r.Get("/", controllers.ListAlarms(svcs.Alarms, logg))
			r.Post("/", controllers.CreateAlarm(svcs.Alarms, svcs.Dispatcher, logg))
			r.Get("/count", controllers.AlarmCounts(svcs.Alarms, logg))
			r.Post("/read-all", controllers.MarkAllAlarmsRead(svcs.Alarms, logg))
			r.Get("/{alarmId}", controllers.GetAlarm(svcs.Alarms, logg))
			r.Post("/{alarmId}/read", controllers.MarkAlarmRead(svcs.Alarms, logg))
			r.Delete("/{alarmId}", controllers.DeleteAlarm(svcs.Alarms, logg))
			r.Get("/{alarmId}/redirect", controllers.AlarmRedirect(svcs.Alarms, logg))
		})

		r.Route("/messages", func(r chi.Router) {
			r.Post("/", controllers.SendMessage(svcs.Messages, logg))
			r.Get("/", controllers.ListMessages(svcs.Messages, logg))
		})

		r.Route("/parties", func(r chi.Router) {
			r.Post("/", controllers.CreateParty(svcs.Parties, logg))
			r.Get("/{partyId}", controllers.GetParty(svcs.Parties, logg))
			r.Post("/{partyId}/apply", controllers.ApplyToParty(svcs.Parties, logg))
			r.Post("/{partyId}/decision", controllers.DecidePartyMember(svcs.Parties, logg))
		})

		r.Route("/boards", func(r chi.Router) {
			r.Post("/", controllers.CreatePost(svcs.Boards, logg))
			r.Post("/{postId}/replies", controllers.CreateReply(svcs.Boards, logg))
		})

		r.Get("/monitoring/sse", controllers.SSEConnectionCount(svcs.Dispatcher, logg))
	})

	return r
}
