package main

import (
	"fmt"
	"math/big"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/go-playground/validator/v10"
	"github.com/young8i/nft-auction-market/base/ctx"
	"github.com/young8i/nft-auction-market/base/database/mongoclient"
	"github.com/young8i/nft-auction-market/base/database/redisclient"
	"github.com/young8i/nft-auction-market/base/goroutine"
	"github.com/young8i/nft-auction-market/base/log"
	"github.com/young8i/nft-auction-market/base/metrics"
	bValidator "github.com/young8i/nft-auction-market/base/validator"
	"github.com/young8i/nft-auction-market/domain"
	"github.com/young8i/nft-auction-market/domain/auction"
	mmiddleware "github.com/young8i/nft-auction-market/middleware"
	"github.com/young8i/nft-auction-market/service/chain"
	"github.com/young8i/nft-auction-market/service/custody"
	"github.com/young8i/nft-auction-market/service/pricefeed"
	"github.com/young8i/nft-auction-market/service/query"
	"github.com/young8i/nft-auction-market/service/redis"
	auction_delivery "github.com/young8i/nft-auction-market/stores/auction/delivery/http"
	auction_repository "github.com/young8i/nft-auction-market/stores/auction/repository"
	auction_usecase "github.com/young8i/nft-auction-market/stores/auction/usecase"
	auth_delivery "github.com/young8i/nft-auction-market/stores/auth/delivery/http"
	auth_middleware "github.com/young8i/nft-auction-market/stores/auth/delivery/http/middleware"
	auth_usecase "github.com/young8i/nft-auction-market/stores/auth/usecase"
	custody_delivery "github.com/young8i/nft-auction-market/stores/custody/delivery/http"
	event_delivery "github.com/young8i/nft-auction-market/stores/event/delivery/http"
	event_recorder "github.com/young8i/nft-auction-market/stores/event/recorder"
	event_repository "github.com/young8i/nft-auction-market/stores/event/repository"
	factory_delivery "github.com/young8i/nft-auction-market/stores/factory/delivery/http"
	factory_repository "github.com/young8i/nft-auction-market/stores/factory/repository"
	factory_usecase "github.com/young8i/nft-auction-market/stores/factory/usecase"
	hc_delivery "github.com/young8i/nft-auction-market/stores/healthcheck/delivery/http"
	hc_repo "github.com/young8i/nft-auction-market/stores/healthcheck/repository"
	hc_usecase "github.com/young8i/nft-auction-market/stores/healthcheck/usecase"
	oracle_delivery "github.com/young8i/nft-auction-market/stores/oracle/delivery/http"
	oracle_repository "github.com/young8i/nft-auction-market/stores/oracle/repository"
	oracle_usecase "github.com/young8i/nft-auction-market/stores/oracle/usecase"

	echoSwagger "github.com/swaggo/echo-swagger"
)

func init() {
	pflag.String("config", "infra/configs/config.yaml", "path to config file")
	pflag.Parse()
	if err := viper.BindPFlags(pflag.CommandLine); err != nil {
		panic(err)
	}

	viper.SetConfigType("yaml")
	viper.SetConfigFile(viper.GetString("config"))
	err := viper.ReadInConfig()
	if err != nil {
		panic(err)
	}

	if viper.GetBool(`debug`) {
		log.Log().Info("Service RUN on DEBUG mode")
	}
}

//	@title			NFT Auction Market API
//	@version		1.0
//	@description	API document for the NFT auction market.

// main
//
//	@securityDefinitions.apikey	ApiKeyAuth
//	@in							header
//	@name						Authorization
//	@description				retrieve token from #/auth/post_auth_sign and apply with `bearer {token}`
func main() {
	// init echo
	e := echo.New()
	e.Use(middleware.Recover())
	e.Use(middleware.GzipWithConfig(middleware.GzipConfig{}))
	e.Use(middleware.RequestID())
	middL := mmiddleware.InitMiddleware()
	e.Use(middL.ResponseLogger())
	e.Use(middL.AddContext())
	e.Use(middleware.CORS())
	e.Validator = bValidator.NewCustomValidator(validator.New())

	context := ctx.Background()

	// init redis, optional for in-memory deployments
	var redisCache redis.Service
	if viper.GetBool("redis_cache.enabled") {
		context.Info("init redis cache")
		redisCacheName := viper.GetString("redis_cache.name")
		redisCacheURI := viper.GetString("redis_cache.uri")
		redisCachePwd := viper.GetString("redis_cache.password")
		redisCachePoolMultiplier := viper.GetFloat64("redis_cache.poolMultiplier")
		redisCachePool := redisclient.MustConnectRedis(redisCacheURI, redisCachePwd, redisclient.RedisParam{
			PoolMultiplier: redisCachePoolMultiplier,
			Retry:          true,
		})
		redisCache = redis.New(redisCacheName, metrics.New(redisCacheName), &redis.Pools{
			Src: redisCachePool,
		})
		mmiddleware.SetupCache(redisCache)
	} else {
		mmiddleware.SetupLocalCache()
	}

	// storage backend, either mongo or process memory for local simulation
	storageMode := viper.GetString("storage.mode")

	var (
		mongoClient *mongoclient.Client
		auctionRepo auction.Repo
		pendingRepo auction.PendingReturnRepo
		configRepo  auction.ConfigRepo
		feedRepo    domain.FeedRepo
		eventRepo   domain.EventRepo
	)

	switch storageMode {
	case "mongo":
		context.Info("init mongo")
		uri := viper.GetString("mongo.uri")
		authDBName := viper.GetString("mongo.authDBName")
		dbName := viper.GetString("mongo.dbName")
		enableSSL := viper.GetBool("mongo.enableSSL")
		checkIndex := viper.GetBool("mongo.checkIndex")
		mongoClient = mongoclient.MustConnectMongoClient(uri, authDBName, dbName, enableSSL, true, 2)
		q := query.New(mongoClient, checkIndex)

		auctionRepo = auction_repository.NewAuctionRepo(q)
		pendingRepo = auction_repository.NewPendingReturnRepo(q)
		configRepo = factory_repository.NewConfigRepo(q)
		feedRepo = oracle_repository.NewFeedRepo(q, redisCache)
		eventRepo = event_repository.NewEventRepo(q)
	case "inmem":
		context.Info("init in-memory storage")
		auctionRepo = auction_repository.NewInmemAuctionRepo()
		pendingRepo = auction_repository.NewInmemPendingReturnRepo()
		configRepo = factory_repository.NewInmemConfigRepo()
		feedRepo = oracle_repository.NewInmemFeedRepo()
		eventRepo = event_repository.NewInmemEventRepo()
	default:
		panic(fmt.Sprintf("unknown storage mode %q", storageMode))
	}

	// event recorder
	recorder := event_recorder.New(eventRepo, viper.GetInt("events.poolSize"))

	// custody ledger simulating the settlement layer
	ledger := custody.NewLedger()

	// price feed source
	var feedSource pricefeed.Service
	switch viper.GetString("pricefeed.mode") {
	case "chain":
		chainService, err := chain.NewClient(context, &chain.ClientCfg{
			RpcUrl: viper.GetString("pricefeed.rpcUrl"),
		})
		if err != nil {
			panic(err)
		}
		feedSource = pricefeed.NewAggregator(chainService)
	case "static":
		static := pricefeed.NewStatic()
		feeds := viper.Sub("pricefeed.static")
		if feeds != nil {
			for k := range feeds.AllSettings() {
				feedRef := feeds.GetString(fmt.Sprintf("%s.feedRef", k))
				rate, ok := new(big.Int).SetString(feeds.GetString(fmt.Sprintf("%s.rate", k)), 10)
				if !ok {
					panic(fmt.Sprintf("invalid static rate for %s", k))
				}
				decimals := feeds.GetInt32(fmt.Sprintf("%s.decimals", k))
				static.SetRate(domain.Address(feedRef), rate, decimals, time.Now())
			}
		}
		feedSource = static
	default:
		panic(fmt.Sprintf("unknown pricefeed mode %q", viper.GetString("pricefeed.mode")))
	}

	// oracle
	owner := domain.Address(viper.GetString("factory.owner"))
	staleAfter := viper.GetDuration("oracle.staleAfter")
	oracleRef := domain.Address(viper.GetString("oracle.ref"))
	oracle := oracle_usecase.New(feedRepo, feedSource, owner, staleAfter, recorder)
	oracleHolder := auction.NewOracleHolder(oracle, oracleRef)

	buildOracle := func(ref domain.Address) domain.OracleUsecase {
		var feeds domain.FeedRepo
		if storageMode == "mongo" {
			feeds = feedRepo
		} else {
			feeds = oracle_repository.NewInmemFeedRepo()
		}
		return oracle_usecase.New(feeds, feedSource, owner, staleAfter, recorder)
	}

	// bootstrap factory config on first start
	if _, err := configRepo.Get(context); err == domain.ErrNotFound {
		cfg := &auction.FactoryConfig{
			Owner:            owner,
			FactoryAddress:   domain.Address(viper.GetString("factory.address")),
			ImplementationId: viper.GetString("factory.implementationId"),
			OracleRef:        oracleRef,
			FeeRecipient:     domain.Address(viper.GetString("factory.feeRecipient")),
			FeeBps:           viper.GetInt64("factory.feeBps"),
		}
		if err := configRepo.Set(context, cfg); err != nil {
			panic(err)
		}
	} else if err != nil {
		panic(err)
	}

	// auction logic registry
	logicV1 := auction_usecase.NewLogicV1(auctionRepo, pendingRepo, ledger, oracleHolder, configRepo, recorder)
	logicV2 := auction_usecase.NewLogicV2(logicV1)
	registry := auction.NewLogicRegistry(logicV1, logicV2)

	auctionUC := auction_usecase.New(auctionRepo, registry)
	factoryUC := factory_usecase.New(configRepo, auctionRepo, ledger, oracleHolder, registry, logicV1, recorder)

	hcRepo := hc_repo.New(mongoClient, redisCache)
	hc := hc_usecase.New(hcRepo)

	auth := auth_usecase.New(viper.GetString("auth.jwtSecret"), viper.GetString("auth.signMessage"))
	authMiddleware := auth_middleware.New(auth, []string{string(owner)})

	hc_delivery.New(e, hc)
	auth_delivery.New(e, auth, viper.GetString("auth.signMessage"))
	oracle_delivery.New(e, oracle, authMiddleware)
	auction_delivery.New(e, auctionUC, authMiddleware)
	factory_delivery.New(e, factoryUC, buildOracle, authMiddleware)
	event_delivery.New(e, eventRepo)

	faucetAmount, ok := new(big.Int).SetString(viper.GetString("custody.faucetAmount"), 10)
	if !ok {
		faucetAmount = big.NewInt(0)
	}
	custody_delivery.New(e, ledger, faucetAmount, authMiddleware)

	e.GET("/check", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]interface{}{
			"address": c.Get("address").(domain.Address),
		})
	}, authMiddleware.Auth())

	e.GET("/swagger/*", echoSwagger.WrapHandler)

	goroutine.RecoverableGo(func() {
		if err := e.Start(viper.GetString("server.address")); err != nil && err != http.ErrServerClosed {
			log.Log().WithField("err", err).Error("shutting down the server")
		}
	})

	// Wait for interrupt signal to gracefully shutdown the server with a timeout of 10 seconds.
	// Use a buffered channel to avoid missing signals as recommended for signal.Notify
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	sig := <-quit
	log.Log().WithField("signal", sig).Info("received signal")
	ctx, cancel := ctx.WithTimeout(context, 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		log.Log().WithField("err", err).Error("shutting down the server")
	} else {
		log.Log().Info("shutdown server successfully")
	}
}
