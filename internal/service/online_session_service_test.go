package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yasinhessnawi1/SecureTransfer_Backend/internal/constants"
	"github.com/yasinhessnawi1/SecureTransfer_Backend/internal/models"
	"github.com/yasinhessnawi1/SecureTransfer_Backend/internal/realtime"
	"github.com/yasinhessnawi1/SecureTransfer_Backend/internal/repository"
	"github.com/yasinhessnawi1/SecureTransfer_Backend/internal/utils"
)

var (
	alice = models.Identity{ID: 1, Name: "alice"}
	bob   = models.Identity{ID: 2, Name: "bob"}
	carol = models.Identity{ID: 3, Name: "carol"}
)

type onlineFixture struct {
	svc       *OnlineSessionService
	store     *repository.MemorySessionStore
	fs        afero.Fs
	publisher *recordingPublisher
	clock     *fakeClock
}

func newOnlineFixture(t *testing.T) *onlineFixture {
	t.Helper()
	clock := newFakeClock()
	store := repository.NewMemorySessionStoreWithClock(clock.Now)
	files, fs := newMemFileStore()
	publisher := &recordingPublisher{}
	return &onlineFixture{
		svc:       NewOnlineSessionService(store, files, publisher, testPasswordConfig()),
		store:     store,
		fs:        fs,
		publisher: publisher,
		clock:     clock,
	}
}

func TestOnlineSessionService_CreateAndView(t *testing.T) {
	f := newOnlineFixture(t)
	ctx := context.Background()

	token, err := f.svc.CreateSession(ctx, alice, "", "", 0)
	require.NoError(t, err)
	assert.Len(t, token, 8)

	view, err := f.svc.GetSessionView(ctx, alice, token)
	require.NoError(t, err)
	assert.Equal(t, token, view.Token)
	assert.Equal(t, "alice", view.SessionName)
	assert.True(t, view.IsOwner)
	assert.Equal(t, 0, view.AutoExpire)
	assert.Equal(t, []string{"alice"}, view.Participants)
	assert.Empty(t, view.Files)

	ttl, err := f.store.TTL(ctx, repository.RecordKey(token))
	require.NoError(t, err)
	assert.Equal(t, repository.TTLPersistent, ttl)
}

func TestOnlineSessionService_CreateNamedWithExpiry(t *testing.T) {
	f := newOnlineFixture(t)
	ctx := context.Background()

	token, err := f.svc.CreateSession(ctx, alice, "  Holiday photos ", "pw", 10)
	require.NoError(t, err)

	view, err := f.svc.GetSessionView(ctx, alice, token)
	require.NoError(t, err)
	assert.Equal(t, "Holiday photos", view.SessionName)
	assert.Equal(t, 10, view.AutoExpire)

	for _, key := range []string{repository.RecordKey(token), repository.ParticipantsKey(token)} {
		ttl, err := f.store.TTL(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, 10*time.Minute, ttl, key)
	}

	fields, err := f.store.HGetAll(ctx, repository.RecordKey(token))
	require.NoError(t, err)
	assert.NotEqual(t, "pw", fields[constants.FieldPassword])
	assert.NotEmpty(t, fields[constants.FieldPasswordSalt])
}

func TestOnlineSessionService_CreateNegativeExpiry(t *testing.T) {
	f := newOnlineFixture(t)

	_, err := f.svc.CreateSession(context.Background(), alice, "", "", -1)
	assert.ErrorIs(t, err, utils.ErrBadRequest)
}

func TestOnlineSessionService_ExpiryUpperBound(t *testing.T) {
	f := newOnlineFixture(t)
	ctx := context.Background()
	limit := constants.MaxAutoExpireMinutes

	_, err := f.svc.CreateSession(ctx, alice, "", "", limit+1)
	assert.ErrorIs(t, err, utils.ErrBadRequest)
	_, err = f.svc.CreateSession(ctx, alice, "", "", 200_000_000)
	assert.ErrorIs(t, err, utils.ErrBadRequest)

	token, err := f.svc.CreateSession(ctx, alice, "", "", limit)
	require.NoError(t, err)
	ttl, err := f.store.TTL(ctx, repository.RecordKey(token))
	require.NoError(t, err)
	assert.Equal(t, time.Duration(limit)*time.Minute, ttl)

	assert.ErrorIs(t, f.svc.SetAutoExpire(ctx, alice.IDString(), token, limit+1), utils.ErrBadRequest)
	assert.ErrorIs(t, f.svc.SetAutoExpire(ctx, alice.IDString(), token, 200_000_000), utils.ErrBadRequest)
	require.NoError(t, f.svc.SetAutoExpire(ctx, alice.IDString(), token, limit))

	view, err := f.svc.GetSessionView(ctx, alice, token)
	require.NoError(t, err, "session survives the largest allowed expiry")
	assert.Equal(t, limit, view.AutoExpire)
}

func TestOnlineSessionService_TokenCollisionRetry(t *testing.T) {
	f := newOnlineFixture(t)
	ctx := context.Background()

	require.NoError(t, f.store.HSet(ctx, repository.RecordKey("aaaaaaaa"), map[string]string{constants.FieldOwnerID: "9"}))

	tokens := []string{"aaaaaaaa", "bbbbbbbb"}
	f.svc.SetTokenGenerator(func() (string, error) {
		token := tokens[0]
		tokens = tokens[1:]
		return token, nil
	})

	token, err := f.svc.CreateSession(ctx, alice, "", "", 0)
	require.NoError(t, err)
	assert.Equal(t, "bbbbbbbb", token)
}

func TestOnlineSessionService_TokenSpaceExhausted(t *testing.T) {
	f := newOnlineFixture(t)
	ctx := context.Background()

	require.NoError(t, f.store.HSet(ctx, repository.RecordKey("aaaaaaaa"), map[string]string{constants.FieldOwnerID: "9"}))
	calls := 0
	f.svc.SetTokenGenerator(func() (string, error) {
		calls++
		return "aaaaaaaa", nil
	})

	_, err := f.svc.CreateSession(ctx, alice, "", "", 0)
	assert.ErrorIs(t, err, utils.ErrInternalServer)
	assert.Equal(t, constants.MaxTokenAttempts, calls)
}

func TestOnlineSessionService_JoinWithPassword(t *testing.T) {
	f := newOnlineFixture(t)
	ctx := context.Background()

	token, err := f.svc.CreateSession(ctx, alice, "", "s3cret", 0)
	require.NoError(t, err)

	err = f.svc.JoinSession(ctx, bob, token, "wrong")
	assert.ErrorIs(t, err, utils.ErrAuthFailed)
	assert.Empty(t, f.publisher.Types())

	require.NoError(t, f.svc.JoinSession(ctx, bob, token, "s3cret"))

	event := f.publisher.Last()
	assert.Equal(t, constants.EventParticipantsUpdate, event.Type)
	assert.Equal(t, token, event.Token)

	var data realtime.ParticipantsData
	require.NoError(t, json.Unmarshal(event.Data, &data))
	assert.Equal(t, []string{"alice", "bob"}, data.Participants)

	view, err := f.svc.GetSessionView(ctx, bob, token)
	require.NoError(t, err)
	assert.False(t, view.IsOwner)
}

func TestOnlineSessionService_JoinOpenSession(t *testing.T) {
	f := newOnlineFixture(t)
	ctx := context.Background()

	token, err := f.svc.CreateSession(ctx, alice, "", "", 0)
	require.NoError(t, err)

	assert.NoError(t, f.svc.JoinSession(ctx, bob, token, ""))
	assert.NoError(t, f.svc.JoinSession(ctx, carol, token, "anything"))

	ok, err := f.svc.IsParticipant(ctx, carol, token)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestOnlineSessionService_JoinMissingSession(t *testing.T) {
	f := newOnlineFixture(t)

	err := f.svc.JoinSession(context.Background(), bob, "nosuchtk", "")
	assert.ErrorIs(t, err, utils.ErrSessionNotFound)

	_, err = f.svc.IsParticipant(context.Background(), bob, "")
	assert.ErrorIs(t, err, utils.ErrSessionNotFound)
}

func TestOnlineSessionService_NonMemberIsRejected(t *testing.T) {
	f := newOnlineFixture(t)
	ctx := context.Background()

	token, err := f.svc.CreateSession(ctx, alice, "", "", 0)
	require.NoError(t, err)
	_, err = f.svc.UploadFile(ctx, alice, token, "a.txt", strings.NewReader("a"))
	require.NoError(t, err)

	_, err = f.svc.GetSessionView(ctx, bob, token)
	assert.ErrorIs(t, err, utils.ErrNotAMember)

	_, err = f.svc.ListFiles(ctx, bob, token)
	assert.ErrorIs(t, err, utils.ErrNotAMember)

	_, err = f.svc.UploadFile(ctx, bob, token, "b.txt", strings.NewReader("b"))
	assert.ErrorIs(t, err, utils.ErrNotAMember)

	_, _, err = f.svc.DownloadFile(ctx, bob, token, "a.txt")
	assert.ErrorIs(t, err, utils.ErrNotAMember)

	ok, err := f.svc.IsParticipant(ctx, bob, token)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestOnlineSessionService_UploadDownloadRoundTrip(t *testing.T) {
	f := newOnlineFixture(t)
	ctx := context.Background()

	token, err := f.svc.CreateSession(ctx, alice, "", "", 0)
	require.NoError(t, err)
	require.NoError(t, f.svc.JoinSession(ctx, bob, token, ""))

	name, err := f.svc.UploadFile(ctx, bob, token, "my notes.txt", strings.NewReader("hello receiver"))
	require.NoError(t, err)
	assert.Equal(t, "my_notes.txt", name)

	event := f.publisher.Last()
	assert.Equal(t, constants.EventFileAdded, event.Type)
	assert.JSONEq(t, `{"filename":"my_notes.txt","uploader":"bob"}`, string(event.Data))

	file, stored, err := f.svc.DownloadFile(ctx, alice, token, "my notes.txt")
	require.NoError(t, err)
	defer file.Close()

	content, err := io.ReadAll(file)
	require.NoError(t, err)
	assert.Equal(t, "my_notes.txt", stored)
	assert.Equal(t, "hello receiver", string(content))

	files, err := f.svc.ListFiles(ctx, alice, token)
	require.NoError(t, err)
	assert.Equal(t, []string{"my_notes.txt"}, files)
}

func TestOnlineSessionService_UploadTraversalStaysInFolder(t *testing.T) {
	f := newOnlineFixture(t)
	ctx := context.Background()

	token, err := f.svc.CreateSession(ctx, alice, "", "", 0)
	require.NoError(t, err)

	name, err := f.svc.UploadFile(ctx, alice, token, "../../etc/passwd", strings.NewReader("x"))
	require.NoError(t, err)
	assert.Equal(t, "etc_passwd", name)

	exists, err := afero.Exists(f.fs, filepath.Join("online", token, "etc_passwd"))
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestOnlineSessionService_UploadWithoutFile(t *testing.T) {
	f := newOnlineFixture(t)
	ctx := context.Background()

	token, err := f.svc.CreateSession(ctx, alice, "", "", 0)
	require.NoError(t, err)

	_, err = f.svc.UploadFile(ctx, alice, token, "a.txt", nil)
	assert.ErrorIs(t, err, utils.ErrNoFile)

	_, err = f.svc.UploadFile(ctx, alice, token, "  ", strings.NewReader("x"))
	assert.ErrorIs(t, err, utils.ErrNoFile)

	_, err = f.svc.UploadFile(ctx, alice, token, "///", strings.NewReader("x"))
	assert.ErrorIs(t, err, utils.ErrNoFile)
}

func TestOnlineSessionService_DownloadUnregisteredFile(t *testing.T) {
	f := newOnlineFixture(t)
	ctx := context.Background()

	token, err := f.svc.CreateSession(ctx, alice, "", "", 0)
	require.NoError(t, err)

	require.NoError(t, f.fs.MkdirAll(filepath.Join("online", token), 0o750))
	require.NoError(t, afero.WriteFile(f.fs, filepath.Join("online", token, "stray.txt"), []byte("x"), 0o640))

	_, _, err = f.svc.DownloadFile(ctx, alice, token, "stray.txt")
	assert.ErrorIs(t, err, utils.ErrFileNotFound)

	_, _, err = f.svc.DownloadFile(ctx, alice, token, "missing.txt")
	assert.ErrorIs(t, err, utils.ErrFileNotFound)
}

func TestOnlineSessionService_ConcurrentDuplicateUploads(t *testing.T) {
	f := newOnlineFixture(t)
	ctx := context.Background()

	token, err := f.svc.CreateSession(ctx, alice, "", "", 0)
	require.NoError(t, err)
	require.NoError(t, f.svc.JoinSession(ctx, bob, token, ""))

	var wg sync.WaitGroup
	for _, user := range []models.Identity{alice, bob} {
		wg.Add(1)
		go func(user models.Identity) {
			defer wg.Done()
			_, err := f.svc.UploadFile(ctx, user, token, "same.txt", strings.NewReader("from "+user.Name))
			assert.NoError(t, err)
		}(user)
	}
	wg.Wait()

	files, err := f.svc.ListFiles(ctx, alice, token)
	require.NoError(t, err)
	assert.Equal(t, []string{"same.txt", "same.txt"}, files)

	entries, err := afero.ReadDir(f.fs, filepath.Join("online", token))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestOnlineSessionService_EndSession(t *testing.T) {
	f := newOnlineFixture(t)
	ctx := context.Background()

	token, err := f.svc.CreateSession(ctx, alice, "", "", 0)
	require.NoError(t, err)
	require.NoError(t, f.svc.JoinSession(ctx, bob, token, ""))
	_, err = f.svc.UploadFile(ctx, bob, token, "a.txt", strings.NewReader("a"))
	require.NoError(t, err)

	assert.ErrorIs(t, f.svc.EndSession(ctx, bob.IDString(), token), utils.ErrForbidden)

	require.NoError(t, f.svc.EndSession(ctx, alice.IDString(), token))
	assert.Equal(t, constants.EventSessionEnded, f.publisher.Last().Type)

	for _, key := range repository.SessionKeys(token) {
		exists, err := f.store.Exists(ctx, key)
		require.NoError(t, err)
		assert.False(t, exists, key)
	}

	exists, err := afero.DirExists(f.fs, filepath.Join("online", token))
	require.NoError(t, err)
	assert.False(t, exists)

	_, err = f.svc.GetSessionView(ctx, alice, token)
	assert.ErrorIs(t, err, utils.ErrSessionNotFound)
	_, err = f.svc.UploadFile(ctx, alice, token, "b.txt", strings.NewReader("b"))
	assert.ErrorIs(t, err, utils.ErrSessionNotFound)
	_, _, err = f.svc.DownloadFile(ctx, bob, token, "a.txt")
	assert.ErrorIs(t, err, utils.ErrSessionNotFound)
	assert.ErrorIs(t, f.svc.EndSession(ctx, alice.IDString(), token), utils.ErrSessionNotFound)
}

func TestOnlineSessionService_ClosedRecordIsNotFound(t *testing.T) {
	f := newOnlineFixture(t)
	ctx := context.Background()

	token, err := f.svc.CreateSession(ctx, alice, "", "", 0)
	require.NoError(t, err)
	require.NoError(t, f.store.HSet(ctx, repository.RecordKey(token), map[string]string{constants.FieldClosed: constants.ClosedTrue}))

	_, err = f.svc.GetSessionView(ctx, alice, token)
	assert.ErrorIs(t, err, utils.ErrSessionNotFound)
	assert.ErrorIs(t, f.svc.EndSession(ctx, alice.IDString(), token), utils.ErrSessionNotFound)
	assert.ErrorIs(t, f.svc.JoinSession(ctx, bob, token, ""), utils.ErrSessionNotFound)
}

func TestOnlineSessionService_SetAutoExpire(t *testing.T) {
	f := newOnlineFixture(t)
	ctx := context.Background()

	token, err := f.svc.CreateSession(ctx, alice, "", "", 0)
	require.NoError(t, err)
	require.NoError(t, f.svc.JoinSession(ctx, bob, token, ""))
	_, err = f.svc.UploadFile(ctx, bob, token, "a.txt", strings.NewReader("a"))
	require.NoError(t, err)

	assert.ErrorIs(t, f.svc.SetAutoExpire(ctx, alice.IDString(), token, 0), utils.ErrBadRequest)
	assert.ErrorIs(t, f.svc.SetAutoExpire(ctx, alice.IDString(), token, -5), utils.ErrBadRequest)
	assert.ErrorIs(t, f.svc.SetAutoExpire(ctx, bob.IDString(), token, 5), utils.ErrForbidden)

	require.NoError(t, f.svc.SetAutoExpire(ctx, alice.IDString(), token, 5))

	event := f.publisher.Last()
	assert.Equal(t, constants.EventAutoExpireSet, event.Type)
	assert.JSONEq(t, `{"minutes":5}`, string(event.Data))

	for _, key := range repository.SessionKeys(token) {
		ttl, err := f.store.TTL(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, 5*time.Minute, ttl, key)
	}

	view, err := f.svc.GetSessionView(ctx, alice, token)
	require.NoError(t, err)
	assert.Equal(t, 5, view.AutoExpire)
}

func TestOnlineSessionService_JoinRefreshesCollectionTTL(t *testing.T) {
	f := newOnlineFixture(t)
	ctx := context.Background()

	token, err := f.svc.CreateSession(ctx, alice, "", "", 10)
	require.NoError(t, err)

	f.clock.Advance(4 * time.Minute)
	require.NoError(t, f.svc.JoinSession(ctx, bob, token, ""))
	_, err = f.svc.UploadFile(ctx, bob, token, "a.txt", strings.NewReader("a"))
	require.NoError(t, err)

	for _, key := range repository.SessionKeys(token) {
		ttl, err := f.store.TTL(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, 6*time.Minute, ttl, key)
	}
}

func TestOnlineSessionService_ExpiredSessionIsNotFound(t *testing.T) {
	f := newOnlineFixture(t)
	ctx := context.Background()

	token, err := f.svc.CreateSession(ctx, alice, "", "", 1)
	require.NoError(t, err)

	f.clock.Advance(61 * time.Second)

	_, err = f.svc.GetSessionView(ctx, alice, token)
	assert.ErrorIs(t, err, utils.ErrSessionNotFound)
}

func TestOnlineSessionService_PublishFailureIsNotFatal(t *testing.T) {
	f := newOnlineFixture(t)
	f.publisher.err = errors.New("broker down")
	ctx := context.Background()

	token, err := f.svc.CreateSession(ctx, alice, "", "", 0)
	require.NoError(t, err)

	assert.NoError(t, f.svc.JoinSession(ctx, bob, token, ""))
	_, err = f.svc.UploadFile(ctx, bob, token, "a.txt", strings.NewReader("a"))
	assert.NoError(t, err)
	assert.NoError(t, f.svc.EndSession(ctx, alice.IDString(), token))
	assert.Len(t, f.publisher.Types(), 3)
}

func TestOnlineSessionService_AnnounceParticipants(t *testing.T) {
	f := newOnlineFixture(t)
	ctx := context.Background()

	token, err := f.svc.CreateSession(ctx, alice, "", "", 0)
	require.NoError(t, err)

	require.NoError(t, f.svc.AnnounceParticipants(ctx, token))
	assert.Equal(t, []string{constants.EventParticipantsUpdate}, f.publisher.Types())
	assert.JSONEq(t, fmt.Sprintf(`{"participants":[%q]}`, "alice"), string(f.publisher.Last().Data))
}
