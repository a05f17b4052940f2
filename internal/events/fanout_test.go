package events

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"resto-system/internal/database/models"
)

type recorder struct {
	calls []Event
	err   error
}

func (r *recorder) Publish(ctx context.Context, channel string, payload interface{}) error {
	if r.err != nil {
		return r.err
	}
	ev, _ := payload.(Event)
	ev.Channel = channel
	r.calls = append(r.calls, ev)
	return nil
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Notification{},
	))
	return db
}

func seedUser(t *testing.T, db *gorm.DB, username, role string, active bool) *models.User {
	t.Helper()
	user := &models.User{
		Username: username,
		Email:    username + "@example.com",
		Password: "hashed",
		Fullname: username,
		Role:     role,
		IsActive: active,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func sampleOrder(waiterID int64) *models.Order {
	return &models.Order{
		ID:                7,
		RestaurantTableID: 3,
		UserID:            waiterID,
		CustomerCount:     2,
		Status:            models.OrderPending,
		TotalAmount:       "20.00",
	}
}

func sampleTable() *models.RestaurantTable {
	return &models.RestaurantTable{ID: 3, Name: "T3", Capacity: 4, Status: models.TableOccupied}
}

func TestTableAssignedNotifiesEveryActiveReceptionist(t *testing.T) {
	db := newTestDB(t)
	rec1 := seedUser(t, db, "rec1", models.RoleReception, true)
	rec2 := seedUser(t, db, "rec2", models.RoleReception, true)
	seedUser(t, db, "rec3", models.RoleReception, false)
	waiter := seedUser(t, db, "waiter", models.RoleWaiter, true)

	f := NewFanout(&recorder{})
	evts, err := f.TableAssigned(db, sampleTable(), sampleOrder(waiter.ID))
	require.NoError(t, err)

	var notifs []models.Notification
	require.NoError(t, db.Order("user_id asc").Find(&notifs).Error)
	require.Len(t, notifs, 2)
	assert.Equal(t, rec1.ID, notifs[0].UserID)
	assert.Equal(t, rec2.ID, notifs[1].UserID)
	assert.Equal(t, NotifTableAssigned, notifs[0].Type)
	require.NotNil(t, notifs[0].Link)
	assert.Equal(t, "/reception/orders/7/bill", *notifs[0].Link)

	require.Len(t, evts, 3)
	assert.Equal(t, ChannelReception, evts[0].Channel)
	assert.Equal(t, EventTableAssigned, evts[0].Event)
	payload, ok := evts[0].Data.(receptionPayload)
	require.True(t, ok)
	assert.NotEmpty(t, payload.Message)
	assert.NotNil(t, payload.Order)
	assert.NotNil(t, payload.Table)
	assert.Equal(t, ChannelRestaurant, evts[1].Channel)
	assert.Equal(t, EventOrderCreated, evts[1].Event)
	assert.Equal(t, EventTableStatusChanged, evts[2].Event)
}

func TestNoActiveRecipientsIsNotAnError(t *testing.T) {
	db := newTestDB(t)
	waiter := seedUser(t, db, "waiter", models.RoleWaiter, true)

	f := NewFanout(&recorder{})
	evts, err := f.OrderCreated(db, sampleTable(), sampleOrder(waiter.ID))
	require.NoError(t, err)
	assert.Len(t, evts, 2)

	var notifs int64
	require.NoError(t, db.Model(&models.Notification{}).Count(&notifs).Error)
	assert.Zero(t, notifs)
}

func TestOrderReadyTargetsOwningWaiter(t *testing.T) {
	db := newTestDB(t)
	seedUser(t, db, "rec", models.RoleReception, true)
	waiter := seedUser(t, db, "waiter", models.RoleWaiter, true)

	f := NewFanout(&recorder{})
	evts, err := f.OrderReady(db, sampleOrder(waiter.ID))
	require.NoError(t, err)

	var notifs []models.Notification
	require.NoError(t, db.Find(&notifs).Error)
	require.Len(t, notifs, 1)
	assert.Equal(t, waiter.ID, notifs[0].UserID)
	assert.Equal(t, NotifOrderReady, notifs[0].Type)

	require.Len(t, evts, 1)
	assert.Equal(t, ChannelRestaurant, evts[0].Channel)
	assert.Equal(t, EventOrderUpdated, evts[0].Event)
}

func TestOrderCancelledPayloadContract(t *testing.T) {
	db := newTestDB(t)
	seedUser(t, db, "rec", models.RoleReception, true)
	waiter := seedUser(t, db, "waiter", models.RoleWaiter, true)

	f := NewFanout(&recorder{})
	evts, err := f.OrderCancelled(db, sampleTable(), sampleOrder(waiter.ID))
	require.NoError(t, err)

	require.Len(t, evts, 3)
	assert.Equal(t, EventOrderCancelled, evts[0].Event)
	payload, ok := evts[0].Data.(receptionPayload)
	require.True(t, ok)
	assert.NotEmpty(t, payload.Link)
	assert.False(t, payload.CreatedAt.IsZero())
}

func TestPublishSwallowsBroadcastErrors(t *testing.T) {
	rec := &recorder{err: errors.New("redis is down")}
	f := NewFanout(rec)

	// must not panic or propagate
	f.Publish(context.Background(), []Event{
		{Channel: ChannelRestaurant, Event: EventOrderUpdated, Data: "x"},
	})
	assert.Empty(t, rec.calls)
}

func TestPublishWithNilBroadcasterIsSafe(t *testing.T) {
	f := NewFanout(nil)
	f.Publish(context.Background(), []Event{
		{Channel: ChannelRestaurant, Event: EventOrderUpdated, Data: "x"},
	})
}

func TestPublishDeliversEachEventOnItsChannel(t *testing.T) {
	rec := &recorder{}
	f := NewFanout(rec)

	f.Publish(context.Background(), []Event{
		{Channel: ChannelReception, Event: EventTableAssigned, Data: "a"},
		{Channel: ChannelRestaurant, Event: EventOrderUpdated, Data: "b"},
	})

	require.Len(t, rec.calls, 2)
	assert.Equal(t, ChannelReception, rec.calls[0].Channel)
	assert.Equal(t, ChannelRestaurant, rec.calls[1].Channel)
}
