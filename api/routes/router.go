package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/pricelist-backend/api/controllers"
	"github.com/angelmondragon/pricelist-backend/api/middleware"
	"github.com/angelmondragon/pricelist-backend/internal/catalog"
	"github.com/angelmondragon/pricelist-backend/internal/pricelist"
	"github.com/angelmondragon/pricelist-backend/pkg/config"
	"github.com/angelmondragon/pricelist-backend/pkg/db"
	"github.com/angelmondragon/pricelist-backend/pkg/logger"
	"github.com/angelmondragon/pricelist-backend/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	gatherer prometheus.Gatherer,
	catalogService catalog.Service,
	priceListService pricelist.Service,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	// typed nils would defeat the nil checks downstream
	readyDeps := map[string]controllers.Pinger{}
	var idempotencyStore redis.IdempotencyStore
	if dbP != nil {
		readyDeps["database"] = dbP
	}
	if redisClient != nil {
		readyDeps["redis"] = redisClient
		idempotencyStore = redisClient
	}
	idempotent := middleware.Idempotency(idempotencyStore, logg)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, readyDeps))
	})

	if gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1/admin", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))

		r.Route("/price-items", func(r chi.Router) {
			r.Get("/", controllers.PriceItemList(priceListService, logg))
			r.With(idempotent).Post("/", controllers.PriceItemCreate(priceListService, logg))
			r.With(idempotent).Post("/approve", controllers.PriceItemApprove(priceListService, logg))
			r.With(idempotent).Post("/reject", controllers.PriceItemReject(priceListService, logg))
			r.With(idempotent).Post("/unapprove", controllers.PriceItemUnapprove(priceListService, logg))
			r.Post("/export", controllers.PriceItemExport(priceListService, logg))
			r.Get("/{itemId}", controllers.PriceItemDetail(priceListService, logg))
			r.Patch("/{itemId}", controllers.PriceItemUpdate(priceListService, logg))
		})

		r.Route("/suppliers", func(r chi.Router) {
			r.Get("/", controllers.SupplierList(catalogService, logg))
			r.With(idempotent).Post("/", controllers.SupplierCreate(catalogService, logg))
			r.Post("/{supplierId}/deactivate", controllers.SupplierSetActive(catalogService, logg, false))
			r.Post("/{supplierId}/activate", controllers.SupplierSetActive(catalogService, logg, true))
		})

		r.Route("/ingredients", func(r chi.Router) {
			r.Get("/", controllers.IngredientList(catalogService, logg))
			r.With(idempotent).Post("/", controllers.IngredientCreate(catalogService, logg))
		})
	})

	return r
}
