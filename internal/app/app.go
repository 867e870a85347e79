package app

import (
	"context"
	"log/slog"

	"github.com/CarciofiVolanti/movie-tally-time/internal/config"
	http_init "github.com/CarciofiVolanti/movie-tally-time/internal/delivery/http/init"
	http_people "github.com/CarciofiVolanti/movie-tally-time/internal/delivery/http/people"
	http_proposal "github.com/CarciofiVolanti/movie-tally-time/internal/delivery/http/proposal"
	http_session "github.com/CarciofiVolanti/movie-tally-time/internal/delivery/http/session"
	http_watched "github.com/CarciofiVolanti/movie-tally-time/internal/delivery/http/watched"
	ws_session "github.com/CarciofiVolanti/movie-tally-time/internal/delivery/ws/session"
	infra_feed "github.com/CarciofiVolanti/movie-tally-time/internal/infra/feed"
	infra_pg_init "github.com/CarciofiVolanti/movie-tally-time/internal/infra/postgres/init"
	infra_postgres_detailedrating "github.com/CarciofiVolanti/movie-tally-time/internal/infra/postgres/detailedrating"
	infra_postgres_favourite "github.com/CarciofiVolanti/movie-tally-time/internal/infra/postgres/favourite"
	infra_postgres_person "github.com/CarciofiVolanti/movie-tally-time/internal/infra/postgres/person"
	infra_postgres_proposal "github.com/CarciofiVolanti/movie-tally-time/internal/infra/postgres/proposal"
	infra_postgres_rating "github.com/CarciofiVolanti/movie-tally-time/internal/infra/postgres/rating"
	infra_postgres_session "github.com/CarciofiVolanti/movie-tally-time/internal/infra/postgres/session"
	infra_postgres_watchedmovie "github.com/CarciofiVolanti/movie-tally-time/internal/infra/postgres/watchedmovie"
	infra_redis_init "github.com/CarciofiVolanti/movie-tally-time/internal/infra/redis/init"
	infra_redis_viewer "github.com/CarciofiVolanti/movie-tally-time/internal/infra/redis/viewer"
	"github.com/CarciofiVolanti/movie-tally-time/internal/metadata"
	usecase_session "github.com/CarciofiVolanti/movie-tally-time/internal/usecase/session"
	usecase_watched "github.com/CarciofiVolanti/movie-tally-time/internal/usecase/watched"
)

func Go(cfg *config.Config) {
	redisConn := infra_redis_init.MustEstablishConn(cfg.Redis)
	pgConn := infra_pg_init.MustEstablishConn(cfg.Postgres)

	lookup := metadata.New(cfg.Metadata.BaseURL, cfg.Metadata.APIKey)

	sessionRepo := infra_postgres_session.New(pgConn)
	personRepo := infra_postgres_person.New(pgConn)
	proposalRepo := infra_postgres_proposal.New(pgConn)
	ratingRepo := infra_postgres_rating.New(pgConn)
	favouriteRepo := infra_postgres_favourite.New(pgConn)
	watchedMovieRepo := infra_postgres_watchedmovie.New(pgConn)
	detailedRatingRepo := infra_postgres_detailedrating.New(pgConn)

	feed := infra_feed.New(infra_pg_init.DSN(cfg.Postgres), slog.Default())
	go func() {
		if err := feed.Run(context.Background()); err != nil {
			slog.Error("change feed stopped", "error", err)
		}
	}()

	sessionRegistry := usecase_session.NewRegistry(
		sessionRepo,
		usecase_session.Repositories{
			People:     personRepo,
			Proposals:  proposalRepo,
			Ratings:    ratingRepo,
			Favourites: favouriteRepo,
			Watched:    watchedMovieRepo,
		},
		lookup,
		feed,
	)
	watchedRegistry := usecase_watched.NewRegistry(
		usecase_watched.Repositories{
			People:  personRepo,
			Movies:  watchedMovieRepo,
			Ratings: detailedRatingRepo,
		},
		lookup,
		feed,
	)

	viewerStore := infra_redis_viewer.New(redisConn)

	hub := ws_session.NewHub(sessionRegistry)

	controllerPool := http_init.NewControllerPool()
	controllerPool.Add(http_session.New(sessionRegistry, viewerStore))
	controllerPool.Add(http_people.New(sessionRegistry))
	controllerPool.Add(http_proposal.New(sessionRegistry, hub))
	controllerPool.Add(http_watched.New(watchedRegistry))
	controllerPool.Add(ws_session.NewController(hub))

	controllerPool.Register()
	controllerPool.RunAll(cfg.HTTP.Port)
}
