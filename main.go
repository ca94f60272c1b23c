package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/dev-mohitbeniwal/echo/authorizer/audit"
	"github.com/dev-mohitbeniwal/echo/authorizer/config"
	"github.com/dev-mohitbeniwal/echo/authorizer/controller"
	"github.com/dev-mohitbeniwal/echo/authorizer/db"
	logger "github.com/dev-mohitbeniwal/echo/authorizer/logging"
	"github.com/dev-mohitbeniwal/echo/authorizer/metrics"
	"github.com/dev-mohitbeniwal/echo/authorizer/middleware"
	"github.com/dev-mohitbeniwal/echo/authorizer/model"
	"github.com/dev-mohitbeniwal/echo/authorizer/pdp/cache"
	"github.com/dev-mohitbeniwal/echo/authorizer/pdp/dao"
	"github.com/dev-mohitbeniwal/echo/authorizer/pdp/directory"
	"github.com/dev-mohitbeniwal/echo/authorizer/pdp/encoder"
	"github.com/dev-mohitbeniwal/echo/authorizer/pdp/engine"
	"github.com/dev-mohitbeniwal/echo/authorizer/pdp/extract"
	"github.com/dev-mohitbeniwal/echo/authorizer/pdp/geo"
	pdp_model "github.com/dev-mohitbeniwal/echo/authorizer/pdp/model"
	"github.com/dev-mohitbeniwal/echo/authorizer/pdp/profile"
	"github.com/dev-mohitbeniwal/echo/authorizer/pdp/token"
	"github.com/dev-mohitbeniwal/echo/authorizer/router"
	"github.com/dev-mohitbeniwal/echo/authorizer/service"
	"github.com/dev-mohitbeniwal/echo/authorizer/util"
)

const serviceName = "authorizer"

func main() {
	// A local .env is optional
	_ = godotenv.Load()

	// Initialize configuration
	if err := config.InitConfig(); err != nil {
		log.Fatalf("Failed to initialize config: %v", err)
	}
	cfg := config.GetConfig()

	// Initialize logger
	logger.InitLogger(cfg.Log.Dir, cfg.Log.Level)
	defer logger.Sync()

	m := metrics.New(cfg.Metrics.Enabled)

	// Initialize Redis when it backs the caches
	var cipher cache.Cipher
	if cfg.Cache.Backend == "redis" {
		if err := db.InitRedis(cfg.Redis); err != nil {
			logger.Fatal("Failed to initialize Redis", zap.Error(err))
		}
		defer db.CloseRedis()

		if cfg.Redis.EncryptionKey != "" {
			sealer, err := db.NewAESCipher([]byte(cfg.Redis.EncryptionKey))
			if err != nil {
				logger.Fatal("Invalid cache encryption key", zap.Error(err))
			}
			cipher = sealer
		}
	}

	// Initialize EventBus
	eventBus := util.NewEventBus()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	eventBus.Start(ctx)

	// Decision pipeline
	decoder := token.NewDecoder(
		newVerifier(ctx, cfg),
		newStore[model.IdentityClaims](cfg, "token", cfg.Cache.TokenTTL, cipher, m),
		token.WithDemo(token.DemoConfig{
			Enabled:     cfg.Token.AllowDemo,
			Prefix:      cfg.Token.DemoPrefix,
			EmailDomain: cfg.Token.DemoEmailDomain,
		}),
	)

	dir := newDirectory(ctx, cfg)
	resolver := profile.NewResolver(dir,
		newStore[model.SecurityProfile](cfg, "profile", cfg.Cache.ProfileTTL, cipher, m),
		profile.WithTimeout(cfg.Directory.Timeout))

	geoResolver := geo.Cached(newGeoResolver(cfg), newStore[string](cfg, "geo", cfg.Cache.GeoTTL, nil, m))

	policy := config.DefaultGroupPolicy()
	if cfg.Policy.Engine == engine.EngineGroup {
		loaded, err := config.LoadGroupPolicy(cfg.Policy.GroupsFile)
		if err != nil {
			logger.Fatal("Failed to load group policy", zap.Error(err), zap.String("path", cfg.Policy.GroupsFile))
		}
		policy = loaded
	}

	evaluator, err := engine.New(cfg, policy, geoResolver, resolver)
	if err != nil {
		logger.Fatal("Failed to build policy evaluator", zap.Error(err))
	}

	authzService := service.NewAuthorizationService(
		extract.NewExtractor(cfg.Extractor.TrustTestIPHeader),
		decoder,
		resolver,
		evaluator,
		encoder.NewEncoder(serviceName, encoder.WithCORS(cfg.CORS.ContextEntries())),
		service.WithMetrics(m),
		service.WithEventBus(eventBus),
		service.WithPreflight(cfg.CORS.AllowPreflight),
	)

	// Audit trail
	auditService := audit.NewService(newAuditRepository(cfg))
	audit.Subscribe(eventBus, auditService)

	logger.Info("Authorizer initialized",
		zap.String("mode", cfg.Server.Mode),
		zap.String("engine", evaluator.Name()),
		zap.String("directory", cfg.Directory.Backend),
		zap.String("cache", cfg.Cache.Backend),
		zap.String("verification", cfg.Token.Verification))

	if cfg.Server.Mode == "lambda" {
		lambda.Start(func(ctx context.Context, event pdp_model.InvocationEvent) (events.APIGatewayCustomAuthorizerResponse, error) {
			resp, err := authzService.HandleEvent(ctx, event)
			// Drain before the instance is frozen
			drainCtx, drainCancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer drainCancel()
			if drainErr := eventBus.Drain(drainCtx); drainErr != nil {
				logger.Warn("Audit events still in flight", zap.Error(drainErr))
			}
			return resp, err
		})
		return
	}

	serveHTTP(cfg, authzService, auditService, m, eventBus)
}

func serveHTTP(cfg *config.Configuration, authzService service.IAuthorizationService, auditService audit.Service, m *metrics.Metrics, eventBus *util.EventBus) {
	opts := router.Options{
		RateLimitRequests: cfg.RateLimit.Requests,
		RateLimitDuration: cfg.RateLimit.Window,
	}
	if cfg.Metrics.Enabled {
		opts.Metrics = m.Handler()
	}
	if db.RedisClient != nil {
		opts.Limiter = db.NewRedisRateLimiter(db.RedisClient)
	}
	if cfg.Server.ResourcePrefix != "" {
		opts.Enforcer = middleware.Authorize(authzService, cfg.Server.ResourcePrefix)
	}

	gin.SetMode(gin.ReleaseMode)
	r := router.SetupRouter(controller.InitializeControllers(authzService, auditService), opts)

	// Set up the server
	server := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: r,
	}

	go func() {
		logger.Info("Starting server", zap.String("port", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	// The server and the audit bus get the same 5 seconds
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	var g errgroup.Group
	g.Go(func() error {
		if err := server.Shutdown(ctx); err != nil {
			return fmt.Errorf("server forced to shutdown: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		if err := eventBus.Drain(ctx); err != nil {
			return fmt.Errorf("audit events dropped on shutdown: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		logger.Error("Unclean shutdown", zap.Error(err))
	}

	logger.Info("Server exiting")
}

// newStore builds the named cache on the configured backend, instrumented with m.
func newStore[V any](cfg *config.Configuration, name string, ttl time.Duration, cipher cache.Cipher, m *metrics.Metrics) cache.Store[V] {
	var store cache.Store[V]
	if cfg.Cache.Backend == "redis" && db.RedisClient != nil {
		store = cache.NewRedisStore[V](db.RedisClient, "authz:"+name+":", ttl, cipher)
	} else {
		store = cache.NewMemoryStore[V](ttl)
	}
	return cache.Instrument(store, name, m)
}

func newVerifier(ctx context.Context, cfg *config.Configuration) token.Verifier {
	switch cfg.Token.Verification {
	case "jwks":
		url := cfg.Token.JWKSURL
		if url == "" {
			url = token.CognitoJWKSURL(cfg.Directory.Cognito.Region, cfg.Directory.Cognito.UserPoolID)
		}
		verifier, err := token.NewJWKSVerifier(ctx, url, cfg.Token.Issuer, time.Now, token.WithRefreshInterval(cfg.Token.JWKSRefresh))
		if err != nil {
			logger.Fatal("Failed to create JWKS verifier", zap.Error(err), zap.String("url", url))
		}
		return verifier
	case "hmac":
		if cfg.Token.HMACSecret == "" {
			logger.Fatal("token.hmacSecret is required for hmac verification")
		}
		return token.NewHMACVerifier([]byte(cfg.Token.HMACSecret), cfg.Token.Issuer, time.Now)
	case "none", "":
		logger.Warn("Token signatures are not verified")
		return token.NewUnverifiedVerifier()
	default:
		logger.Fatal("Unknown token verification", zap.String("verification", cfg.Token.Verification))
		return nil
	}
}

func newDirectory(ctx context.Context, cfg *config.Configuration) directory.ProfileDirectory {
	switch cfg.Directory.Backend {
	case "cognito":
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Directory.Cognito.Region))
		if err != nil {
			logger.Fatal("Failed to load AWS configuration", zap.Error(err))
		}
		client := cognitoidentityprovider.NewFromConfig(awsCfg)
		return directory.NewCognitoDirectory(client, cfg.Directory.Cognito.UserPoolID, cfg.Directory.Cognito.Region)
	case "neo4j":
		if err := db.InitNeo4j(cfg.Neo4j); err != nil {
			logger.Fatal("Failed to initialize Neo4j", zap.Error(err))
		}
		return dao.NewProfileDAO(db.ExecuteReadTransaction)
	case "fixture", "":
		logger.Warn("Serving canned demo profiles")
		return directory.NewFixture(directory.WithProfiles(directory.DemoProfiles()...))
	default:
		logger.Fatal("Unknown directory backend", zap.String("backend", cfg.Directory.Backend))
		return nil
	}
}

func newGeoResolver(cfg *config.Configuration) geo.Resolver {
	if cfg.Geo.Provider == "table" {
		return geo.NewTableResolver(geo.DefaultTable(), cfg.Geo.HomeCountry)
	}
	return geo.NewIPAPIClient(cfg.Geo.Endpoint, cfg.Geo.Timeout,
		geo.WithRequestsPerMinute(cfg.Geo.RequestsPerMinute),
		geo.WithHomeCountry(cfg.Geo.HomeCountry))
}

func newAuditRepository(cfg *config.Configuration) audit.Repository {
	if !cfg.Audit.Enabled {
		return audit.NewLogRepository(0)
	}
	repo, err := audit.NewElasticsearchRepository(cfg.Elasticsearch.URL, cfg.Audit.Index)
	if err != nil {
		logger.Fatal("Failed to create Elasticsearch client", zap.Error(err))
	}
	return repo
}
