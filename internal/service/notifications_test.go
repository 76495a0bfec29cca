package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corralhq/corral/internal/cache"
	"github.com/corralhq/corral/internal/domain"
	"github.com/corralhq/corral/internal/logging"
	"github.com/corralhq/corral/internal/netmon"
	"github.com/corralhq/corral/internal/optimistic"
	"github.com/corralhq/corral/internal/queue"
	"github.com/corralhq/corral/internal/state"
)

func newNotificationFixture(t *testing.T, online bool) (*NotificationService, *fakeGateway, *state.Store, *queue.Queue, *netmon.Monitor) {
	t.Helper()
	gw := &fakeGateway{}
	c, err := cache.Open("", cache.Options{Logger: logging.Null()})
	require.NoError(t, err)
	q, err := queue.Open("", logging.Null())
	require.NoError(t, err)
	store := state.NewStore()
	monitor := netmon.New(online, logging.Null())
	coordinator := optimistic.New(q, monitor, logging.Null())
	svc := NewNotificationService(gw, store, c, coordinator, logging.Null())
	return svc, gw, store, q, monitor
}

func TestLoadNotifications(t *testing.T) {
	svc, gw, store, _, _ := newNotificationFixture(t, true)
	gw.notifications = []domain.Notification{
		{ID: "n1", Title: "Vaccination due"},
		{ID: "n2", Title: "Weight anomaly", Read: true},
	}

	records, err := svc.LoadNotifications(context.Background())
	require.NoError(t, err)
	assert.Len(t, records, 2)
	assert.Len(t, store.Snapshot().Notifications, 2)
	assert.Equal(t, 1, svc.UnreadCount())
}

func TestMarkReadOnline(t *testing.T) {
	svc, gw, store, q, _ := newNotificationFixture(t, true)
	gw.notifications = []domain.Notification{{ID: "n1"}}
	_, err := svc.LoadNotifications(context.Background())
	require.NoError(t, err)

	require.NoError(t, svc.MarkRead(context.Background(), "n1"))

	assert.True(t, store.Snapshot().Notifications[0].Read)
	assert.Equal(t, 0, q.Len())
	assert.True(t, gw.notifications[0].Read, "server saw the write")
}

func TestMarkReadOfflineQueues(t *testing.T) {
	svc, gw, store, q, monitor := newNotificationFixture(t, true)
	gw.notifications = []domain.Notification{{ID: "n1"}}
	_, err := svc.LoadNotifications(context.Background())
	require.NoError(t, err)

	monitor.SetOnline(false)
	require.NoError(t, svc.MarkRead(context.Background(), "n1"))

	assert.True(t, store.Snapshot().Notifications[0].Read, "optimistic flip immediate")
	require.Equal(t, 1, q.Len())
	pending := q.Snapshot()
	assert.Equal(t, domain.CollectionNotifications, pending[0].Collection)
	assert.Equal(t, domain.ChangeUpdate, pending[0].Kind)
}

func TestDeleteNotificationRollsBackOnRejection(t *testing.T) {
	svc, gw, store, q, _ := newNotificationFixture(t, true)
	gw.notifications = []domain.Notification{{ID: "n1"}}
	_, err := svc.LoadNotifications(context.Background())
	require.NoError(t, err)

	// The server refuses: the fake deletes only known ids, so point at
	// a record that exists locally but not remotely.
	store.Dispatch(state.SetNotifications{Records: []domain.Notification{{ID: "ghost"}}})
	err = svc.Delete(context.Background(), "ghost")
	require.ErrorIs(t, err, domain.ErrRecordNotFound)

	assert.Len(t, store.Snapshot().Notifications, 1, "optimistic removal restored")
	assert.Equal(t, 0, q.Len())
}
