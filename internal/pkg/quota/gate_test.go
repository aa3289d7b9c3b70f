package quota

import (
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/voxpage/voxpage/internal/pkg/api"
	"github.com/voxpage/voxpage/internal/pkg/test"
	"github.com/voxpage/voxpage/internal/pkg/test/mocks"
)

var (
	dbMock *mocks.DB
	tGate  *Gate
)

func initTest(t *testing.T) {
	dbMock = &mocks.DB{}
	var err error
	tGate, err = NewGate(dbMock, 3, time.UTC)
	require.Nil(t, err)
}

func TestNewGate(t *testing.T) {
	initTest(t)
	_, err := NewGate(nil, 3, nil)
	assert.NotNil(t, err)
	_, err = NewGate(dbMock, 0, nil)
	assert.NotNil(t, err)
	g, err := NewGate(dbMock, 1, nil)
	assert.Nil(t, err)
	assert.NotNil(t, g)
}

func TestCheck_UserPasses(t *testing.T) {
	initTest(t)
	assert.Nil(t, tGate.Check(test.Ctx(t), 5))
	dbMock.AssertNotCalled(t, "CountConversionsSince", mock.Anything, mock.Anything, mock.Anything)
}

func TestCheck_GuestUnderLimit(t *testing.T) {
	initTest(t)
	dbMock.On("CountConversionsSince", mock.Anything, api.GuestID, mock.Anything).Return(2, nil)
	assert.Nil(t, tGate.Check(test.Ctx(t), api.GuestID))
}

func TestCheck_GuestAtLimit(t *testing.T) {
	initTest(t)
	dbMock.On("CountConversionsSince", mock.Anything, api.GuestID, mock.Anything).Return(3, nil)
	err := tGate.Check(test.Ctx(t), api.GuestID)
	assert.True(t, errors.Is(err, ErrLimitReached), err)
}

func TestCheck_FailsDB(t *testing.T) {
	initTest(t)
	dbMock.On("CountConversionsSince", mock.Anything, api.GuestID, mock.Anything).
		Return(0, errors.New("db err"))
	err := tGate.Check(test.Ctx(t), api.GuestID)
	assert.NotNil(t, err)
	assert.False(t, errors.Is(err, ErrLimitReached))
}

func TestCheck_CountsSinceMidnight(t *testing.T) {
	initTest(t)
	dbMock.On("CountConversionsSince", mock.Anything, api.GuestID, mock.Anything).Return(0, nil)
	require.Nil(t, tGate.Check(test.Ctx(t), api.GuestID))
	since := dbMock.Calls[0].Arguments.Get(2).(time.Time)
	now := time.Now().In(time.UTC)
	assert.Equal(t, time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC), since)
}

func TestLimit(t *testing.T) {
	initTest(t)
	assert.Equal(t, 3, tGate.Limit())
}

func Test_midnight(t *testing.T) {
	loc, err := time.LoadLocation("Europe/Vilnius")
	require.Nil(t, err)
	at := time.Date(2023, 5, 10, 22, 30, 0, 0, time.UTC) // 01:30 next day in Vilnius
	assert.Equal(t, time.Date(2023, 5, 11, 0, 0, 0, 0, loc), midnight(at, loc))
	assert.Equal(t, time.Date(2023, 5, 10, 0, 0, 0, 0, time.UTC), midnight(at, time.UTC))
}
