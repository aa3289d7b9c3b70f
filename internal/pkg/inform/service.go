package inform

import (
	"context"
	"fmt"
	"strconv"
	"time"

	ainform "github.com/airenas/async-api/pkg/inform"
	amessages "github.com/airenas/async-api/pkg/messages"
	"github.com/airenas/go-app/pkg/goapp"
	"github.com/jordan-wright/email"
	"github.com/vgarvardt/gue/v5"
	"github.com/voxpage/voxpage/internal/pkg/api"
	"github.com/voxpage/voxpage/internal/pkg/messages"
	"github.com/voxpage/voxpage/internal/pkg/persistence"
	"github.com/voxpage/voxpage/internal/pkg/utils"
)

// Sender sends emails
type Sender interface {
	Send(email *email.Email) error
}

// EmailMaker prepares the email
type EmailMaker interface {
	Make(data *ainform.Data) (*email.Email, error)
}

// DB loads conversion and owner data
type DB interface {
	GetConversion(ctx context.Context, id int64) (*persistence.Conversion, error)
	GetUser(ctx context.Context, id int64) (*persistence.User, error)
}

// ServiceData keeps data required for service work
type ServiceData struct {
	GueClient   *gue.Client
	WorkerCount int
	EmailSender Sender
	EmailMaker  EmailMaker
	DB          DB
	Location    *time.Location
}

// StartWorkerService starts the queue listener sending conversion completion emails,
// returns channel closed when all workers exit
func StartWorkerService(ctx context.Context, data *ServiceData) (chan struct{}, error) {
	if err := validate(data); err != nil {
		return nil, err
	}
	goapp.Log.Info().Msg("Starting listen for inform messages")

	wm := gue.WorkMap{
		messages.Inform: utils.CreateHandler(data, handleInform),
	}

	pool, err := gue.NewWorkerPool(
		data.GueClient, wm, data.WorkerCount,
		gue.WithPoolQueue(messages.Inform),
		gue.WithPoolLogger(utils.NewGueLoggerAdapter()),
		gue.WithPoolPollInterval(500*time.Millisecond),
		gue.WithPoolPollStrategy(gue.RunAtPollStrategy),
		gue.WithPoolID("voxpage-inform"),
	)
	if err != nil {
		return nil, fmt.Errorf("could not build gue workers pool: %w", err)
	}
	res := make(chan struct{}, 1)
	go func() {
		goapp.Log.Info().Msg("Starting workers")
		if err := pool.Run(ctx); err != nil {
			goapp.Log.Error().Err(err).Msg("pool error")
		}
		goapp.Log.Info().Msg("Pool workers finished")
		res <- struct{}{}
	}()
	return res, nil
}

func handleInform(ctx context.Context, m *amessages.InformMessage, data *ServiceData) error {
	goapp.Log.Info().Str("ID", m.ID).Msg("handling")

	id, err := strconv.ParseInt(m.ID, 10, 64)
	if err != nil {
		return fmt.Errorf("wrong conversion ID '%s': %w", m.ID, err)
	}
	conv, err := data.DB.GetConversion(ctx, id)
	if err != nil {
		return fmt.Errorf("can't load conversion: %w", err)
	}
	if conv == nil || conv.UserID == api.GuestID {
		goapp.Log.Info().Str("ID", m.ID).Msg("no registered owner, skip")
		return nil
	}
	user, err := data.DB.GetUser(ctx, conv.UserID)
	if err != nil {
		return fmt.Errorf("can't load user: %w", err)
	}
	if user == nil || !user.Email.Valid {
		goapp.Log.Info().Str("ID", m.ID).Msg("No email, skip")
		return nil
	}

	mailData := ainform.Data{}
	mailData.ID = m.ID
	mailData.Email = user.Email.String
	mailData.MsgTime = toLocalTime(data, m.At)
	mailData.MsgType = m.Type

	mail, err := data.EmailMaker.Make(&mailData)
	if err != nil {
		return fmt.Errorf("can't prepare email: %w", err)
	}
	if err := data.EmailSender.Send(mail); err != nil {
		return fmt.Errorf("can't send email: %w", err)
	}
	return nil
}

func validate(data *ServiceData) error {
	if data.GueClient == nil {
		return fmt.Errorf("no gue client")
	}
	if data.WorkerCount < 1 {
		return fmt.Errorf("no worker count provided")
	}
	if data.EmailMaker == nil {
		return fmt.Errorf("no EmailMaker")
	}
	if data.EmailSender == nil {
		return fmt.Errorf("no EmailSender")
	}
	if data.DB == nil {
		return fmt.Errorf("no DB")
	}
	return nil
}

func toLocalTime(data *ServiceData, t time.Time) time.Time {
	if data.Location != nil {
		return t.In(data.Location)
	}
	return t
}
