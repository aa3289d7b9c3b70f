package inform

import (
	"fmt"
	"testing"
	"time"

	ainform "github.com/airenas/async-api/pkg/inform"
	amessages "github.com/airenas/async-api/pkg/messages"
	"github.com/jordan-wright/email"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/vgarvardt/gue/v5"

	"github.com/voxpage/voxpage/internal/pkg/persistence"
	"github.com/voxpage/voxpage/internal/pkg/test"
	"github.com/voxpage/voxpage/internal/pkg/test/mocks"
	"github.com/voxpage/voxpage/internal/pkg/utils"
)

var (
	dbMock     *mocks.DB
	senderMock *mocks.EmailSender
	makerMock  *mocks.EmailMaker
	srvData    *ServiceData
)

func initTest(t *testing.T) {
	dbMock = &mocks.DB{}
	senderMock = &mocks.EmailSender{}
	makerMock = &mocks.EmailMaker{}
	srvData = &ServiceData{DB: dbMock, GueClient: &gue.Client{}, WorkerCount: 10,
		EmailSender: senderMock, EmailMaker: makerMock, Location: nil}
	dbMock.On("GetConversion", mock.Anything, int64(1)).
		Return(&persistence.Conversion{ID: 1, UserID: 5, AudioPath: "/api/audio/x.mp3"}, nil)
	dbMock.On("GetUser", mock.Anything, int64(5)).
		Return(&persistence.User{ID: 5, Username: "jonas", Email: utils.ToSQLStr("o@o.lt")}, nil)
	senderMock.On("Send", mock.Anything).Return(nil)
	makerMock.On("Make", mock.Anything).Return(&email.Email{From: "o@o.lt", Text: []byte("text")}, nil)
}

func newTestMsg(id string) *amessages.InformMessage {
	return &amessages.InformMessage{QueueMessage: amessages.QueueMessage{ID: id},
		Type: amessages.InformTypeFinished, At: time.Date(2023, 5, 10, 12, 0, 0, 0, time.UTC)}
}

func Test_handleInform(t *testing.T) {
	initTest(t)
	err := handleInform(test.Ctx(t), newTestMsg("1"), srvData)
	assert.Nil(t, err)
	senderMock.AssertNumberOfCalls(t, "Send", 1)
	require.Equal(t, 1, len(makerMock.Calls))
	mailData := makerMock.Calls[0].Arguments[0].(*ainform.Data)
	assert.Equal(t, "1", mailData.ID)
	assert.Equal(t, "o@o.lt", mailData.Email)
	assert.Equal(t, amessages.InformTypeFinished, mailData.MsgType)
}

func Test_handleInform_WrongID(t *testing.T) {
	initTest(t)
	err := handleInform(test.Ctx(t), newTestMsg("olia"), srvData)
	assert.NotNil(t, err)
}

func Test_handleInform_SkipsGuest(t *testing.T) {
	initTest(t)
	dbMock.ExpectedCalls = nil
	dbMock.On("GetConversion", mock.Anything, int64(1)).
		Return(&persistence.Conversion{ID: 1, UserID: 0}, nil)
	err := handleInform(test.Ctx(t), newTestMsg("1"), srvData)
	assert.Nil(t, err)
	senderMock.AssertNotCalled(t, "Send", mock.Anything)
}

func Test_handleInform_SkipsMissingConversion(t *testing.T) {
	initTest(t)
	dbMock.ExpectedCalls = nil
	dbMock.On("GetConversion", mock.Anything, int64(1)).Return(nil, nil)
	err := handleInform(test.Ctx(t), newTestMsg("1"), srvData)
	assert.Nil(t, err)
	senderMock.AssertNotCalled(t, "Send", mock.Anything)
}

func Test_handleInform_SkipsNoEmail(t *testing.T) {
	initTest(t)
	dbMock.ExpectedCalls = nil
	dbMock.On("GetConversion", mock.Anything, int64(1)).
		Return(&persistence.Conversion{ID: 1, UserID: 5}, nil)
	dbMock.On("GetUser", mock.Anything, int64(5)).
		Return(&persistence.User{ID: 5, Username: "jonas"}, nil)
	err := handleInform(test.Ctx(t), newTestMsg("1"), srvData)
	assert.Nil(t, err)
	senderMock.AssertNotCalled(t, "Send", mock.Anything)
}

func Test_handleInform_FailDB(t *testing.T) {
	initTest(t)
	dbMock.ExpectedCalls = nil
	dbMock.On("GetConversion", mock.Anything, int64(1)).Return(nil, fmt.Errorf("err"))
	err := handleInform(test.Ctx(t), newTestMsg("1"), srvData)
	assert.NotNil(t, err)
}

func Test_handleInform_FailMaker(t *testing.T) {
	initTest(t)
	makerMock.ExpectedCalls = nil
	makerMock.On("Make", mock.Anything).Return(nil, fmt.Errorf("err"))
	err := handleInform(test.Ctx(t), newTestMsg("1"), srvData)
	assert.NotNil(t, err)
}

func Test_handleInform_FailSender(t *testing.T) {
	initTest(t)
	senderMock.ExpectedCalls = nil
	senderMock.On("Send", mock.Anything).Return(fmt.Errorf("err"))
	err := handleInform(test.Ctx(t), newTestMsg("1"), srvData)
	assert.NotNil(t, err)
}

func Test_toLocalTime(t *testing.T) {
	initTest(t)
	at := time.Date(2023, 5, 10, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, at, toLocalTime(srvData, at))
	loc, err := time.LoadLocation("Europe/Vilnius")
	require.Nil(t, err)
	srvData.Location = loc
	assert.Equal(t, at.In(loc), toLocalTime(srvData, at))
}

func Test_validate(t *testing.T) {
	initTest(t)
	tests := []struct {
		name    string
		prepare func(d *ServiceData)
		wantErr bool
	}{
		{name: "OK", prepare: func(d *ServiceData) {}, wantErr: false},
		{name: "Fail no gue", prepare: func(d *ServiceData) { d.GueClient = nil }, wantErr: true},
		{name: "Fail no workers", prepare: func(d *ServiceData) { d.WorkerCount = 0 }, wantErr: true},
		{name: "Fail no maker", prepare: func(d *ServiceData) { d.EmailMaker = nil }, wantErr: true},
		{name: "Fail no sender", prepare: func(d *ServiceData) { d.EmailSender = nil }, wantErr: true},
		{name: "Fail no DB", prepare: func(d *ServiceData) { d.DB = nil }, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			initTest(t)
			tt.prepare(srvData)
			if err := validate(srvData); (err != nil) != tt.wantErr {
				t.Errorf("validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
