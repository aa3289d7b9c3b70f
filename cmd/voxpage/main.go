package main

import (
	"context"
	"time"

	aclean "github.com/airenas/async-api/pkg/clean"
	ainform "github.com/airenas/async-api/pkg/inform"
	"github.com/airenas/go-app/pkg/goapp"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/gommon/color"
	"github.com/vgarvardt/gue/v5"
	"github.com/vgarvardt/gue/v5/adapter/pgxv5"

	"github.com/voxpage/voxpage/internal/pkg/auth"
	"github.com/voxpage/voxpage/internal/pkg/clean"
	"github.com/voxpage/voxpage/internal/pkg/extract"
	"github.com/voxpage/voxpage/internal/pkg/filer"
	"github.com/voxpage/voxpage/internal/pkg/inform"
	"github.com/voxpage/voxpage/internal/pkg/postgres"
	"github.com/voxpage/voxpage/internal/pkg/quota"
	"github.com/voxpage/voxpage/internal/pkg/service"
	"github.com/voxpage/voxpage/internal/pkg/synthesize"
)

func main() {
	goapp.StartWithDefault()
	cfg := goapp.Config

	data := &service.Data{}
	data.Port = cfg.GetInt("port")

	ctx := context.Background()

	dbConfig, err := pgxpool.ParseConfig(cfg.GetString("db.url"))
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init db pool")
	}
	dbPool, err := pgxpool.NewWithConfig(ctx, dbConfig)
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init db pool")
	}
	defer dbPool.Close()

	db, err := postgres.NewDB(dbPool)
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init db")
	}
	if err := db.Migrate(ctx); err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't migrate db")
	}
	data.DB = db

	uploadsFiler, err := filer.NewLocal(cfg.GetString("fs.uploads"))
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init uploads storage")
	}
	data.Uploads = uploadsFiler
	audioFiler, err := filer.NewLocal(cfg.GetString("fs.audio"))
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init audio storage")
	}
	data.Audio = audioFiler

	data.Extractor = extract.New()
	data.Synthesizer, err = synthesize.NewClient(cfg.GetString("tts.url"), cfg.GetDuration("tts.timeout"))
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init synthesizer")
	}

	var location *time.Location
	if s := cfg.GetString("worker.location"); s != "" {
		location, err = time.LoadLocation(s)
		if err != nil {
			goapp.Log.Fatal().Err(err).Msg("can't init location")
		}
		goapp.Log.Info().Str("local", time.Now().In(location).Format(time.RFC3339)).Msg("time")
	}
	data.Quota, err = quota.NewGate(db, cfg.GetInt("guest.limit"), location)
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init quota gate")
	}

	data.Sessions, err = auth.NewSessions(cfg.GetString("auth.secret"), cfg.GetDuration("auth.ttl"))
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init sessions")
	}

	data.MsgSender, err = postgres.NewSender(dbPool)
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init gue sender")
	}

	iData := &inform.ServiceData{}
	iData.GueClient, err = gue.NewClient(pgxv5.NewConnPool(dbPool))
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init gue")
	}
	iData.WorkerCount = cfg.GetInt("worker.count")
	iData.DB = db
	iData.Location = location
	iData.EmailMaker, err = ainform.NewTemplateEmailMaker(cfg)
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init email maker")
	}
	if cfg.GetString("smtp.fakeUrl") == "" {
		goapp.Log.Info().Str("sender", "real").Msg("smtp")
		iData.EmailSender, err = ainform.NewSimpleEmailSender(cfg)
		if err != nil {
			goapp.Log.Fatal().Err(err).Msg("can't init email sender")
		}
	} else {
		goapp.Log.Info().Str("sender", "fake").Msg("smtp")
		iData.EmailSender, err = inform.NewFakeEmailSender(cfg)
		if err != nil {
			goapp.Log.Fatal().Err(err).Msg("can't init fake email sender")
		}
	}

	tData := aclean.TimerData{}
	tData.IDsProvider, err = postgres.NewExpiredGuestFiles(dbPool, cfg.GetDuration("timer.expire"))
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init IDs provider")
	}
	tData.Cleaner, err = clean.NewCleaner(db, uploadsFiler, audioFiler)
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init cleaner")
	}
	tData.RunEvery = cfg.GetDuration("timer.runEvery")
	goapp.Log.Info().Dur("duration", cfg.GetDuration("timer.expire")).Msg("expire")

	printBanner()

	ctxBg, cancelFunc := context.WithCancel(ctx)
	timerDoneCh, err := aclean.StartCleanTimer(ctxBg, &tData)
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't start timer")
	}
	informDoneCh, err := inform.StartWorkerService(ctxBg, iData)
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't start inform service")
	}

	err = service.StartWebServer(data)
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't start web server")
	}
	cancelFunc()
	for _, ch := range []<-chan struct{}{timerDoneCh, informDoneCh} {
		select {
		case <-ch:
		case <-time.After(time.Second * 15):
			goapp.Log.Warn().Msg("Timeout gracefull shutdown")
		}
	}
	goapp.Log.Info().Msg("All code returned. Now exit. Bye")
}

var (
	version = "DEV"
)

func printBanner() {
	banner :=
		`
 _  _  ____  _  _  ____   __    ___  ____
( \/ )(  _ \( \/ )(  _ \ /__\  / __)( ___)
 \  /  )(_) ))  (  )___//(__)\( (_-. )__)
  \/  (____/(_/\_)(__) (__)(__)\___/(____)   v: %s

%s
________________________________________________________

`
	cl := color.New()
	cl.Printf(banner, cl.Red(version), cl.Green("https://github.com/voxpage/voxpage"))
}
