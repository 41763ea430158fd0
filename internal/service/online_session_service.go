package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"

	"github.com/yasinhessnawi1/SecureTransfer_Backend/internal/auth"
	"github.com/yasinhessnawi1/SecureTransfer_Backend/internal/constants"
	"github.com/yasinhessnawi1/SecureTransfer_Backend/internal/filestore"
	"github.com/yasinhessnawi1/SecureTransfer_Backend/internal/models"
	"github.com/yasinhessnawi1/SecureTransfer_Backend/internal/realtime"
	"github.com/yasinhessnawi1/SecureTransfer_Backend/internal/repository"
	"github.com/yasinhessnawi1/SecureTransfer_Backend/internal/utils"
)

// OnlineSessionService manages tokenized sessions kept in the session store.
// It holds no session state of its own, so any number of server processes
// can serve the same sessions.
type OnlineSessionService struct {
	store         repository.SessionStore
	files         *filestore.Store
	publisher     realtime.Publisher
	passwordCfg   *auth.PasswordConfig
	generateToken func() (string, error)
}

// NewOnlineSessionService creates a new OnlineSessionService
func NewOnlineSessionService(
	store repository.SessionStore,
	files *filestore.Store,
	publisher realtime.Publisher,
	passwordCfg *auth.PasswordConfig,
) *OnlineSessionService {
	return &OnlineSessionService{
		store:         store,
		files:         files,
		publisher:     publisher,
		passwordCfg:   passwordCfg,
		generateToken: auth.GenerateSessionToken,
	}
}

// SetTokenGenerator replaces the session token source.
func (s *OnlineSessionService) SetTokenGenerator(generate func() (string, error)) {
	s.generateToken = generate
}

// CreateSession creates a session owned by owner and returns its token.
// The owner joins it immediately. A positive autoExpireMinutes bounds its lifetime.
func (s *OnlineSessionService) CreateSession(ctx context.Context, owner models.Identity, sessionName, password string, autoExpireMinutes int) (string, error) {
	if autoExpireMinutes < 0 {
		return "", utils.NewBadRequestError("auto_expire must not be negative")
	}
	if autoExpireMinutes > constants.MaxAutoExpireMinutes {
		return "", utils.NewBadRequestError(fmt.Sprintf("auto_expire must not exceed %d minutes", constants.MaxAutoExpireMinutes))
	}
	sessionName = strings.TrimSpace(sessionName)

	token, err := s.newToken(ctx)
	if err != nil {
		return "", err
	}

	record := models.NewSessionRecord(token, owner, sessionName, autoExpireMinutes)
	if password != "" {
		record.PasswordHash, record.PasswordSalt, err = auth.HashPassword(password, s.passwordCfg)
		if err != nil {
			return "", fmt.Errorf("failed to hash session password: %w", err)
		}
	}

	if err := s.store.HSet(ctx, repository.RecordKey(token), record.Fields()); err != nil {
		return "", fmt.Errorf("failed to store session: %w", err)
	}
	if err := s.store.SAdd(ctx, repository.ParticipantsKey(token), owner.Name); err != nil {
		return "", fmt.Errorf("failed to add session owner: %w", err)
	}
	if autoExpireMinutes > 0 {
		if err := s.applyTTL(ctx, token, time.Duration(autoExpireMinutes)*time.Minute); err != nil {
			return "", err
		}
	}

	utils.LogSessionEvent("online_create", token, owner.IDString(), true, "")
	return token, nil
}

// newToken draws tokens until one is not in use.
func (s *OnlineSessionService) newToken(ctx context.Context) (string, error) {
	for attempt := 0; attempt < constants.MaxTokenAttempts; attempt++ {
		token, err := s.generateToken()
		if err != nil {
			return "", fmt.Errorf("failed to generate session token: %w", err)
		}

		exists, err := s.store.Exists(ctx, repository.RecordKey(token))
		if err != nil {
			return "", fmt.Errorf("failed to check session token: %w", err)
		}
		if !exists {
			return token, nil
		}
		log.Debug().Int("attempt", attempt+1).Msg("Session token collision, retrying")
	}
	return "", utils.NewInternalServerError(fmt.Errorf("no free session token after %d attempts", constants.MaxTokenAttempts))
}

// JoinSession adds user to the participants of a session.
func (s *OnlineSessionService) JoinSession(ctx context.Context, user models.Identity, token, password string) error {
	record, err := s.load(ctx, token)
	if err != nil {
		utils.LogSessionEvent("online_join", token, user.IDString(), false, "session not found")
		return err
	}

	if record.HasPassword() {
		ok, err := auth.VerifyPassword(password, record.PasswordHash, record.PasswordSalt, s.passwordCfg)
		if err != nil {
			return fmt.Errorf("failed to verify session password: %w", err)
		}
		if !ok {
			utils.LogSessionEvent("online_join", token, user.IDString(), false, "invalid password")
			return utils.NewAuthFailedError()
		}
	}

	if err := s.store.SAdd(ctx, repository.ParticipantsKey(token), user.Name); err != nil {
		return fmt.Errorf("failed to add participant: %w", err)
	}
	s.refreshTTL(ctx, token)

	utils.LogSessionEvent("online_join", token, user.IDString(), true, "")
	return s.AnnounceParticipants(ctx, token)
}

// AnnounceParticipants publishes the current participant set of a session.
func (s *OnlineSessionService) AnnounceParticipants(ctx context.Context, token string) error {
	participants, err := s.store.SMembers(ctx, repository.ParticipantsKey(token))
	if err != nil {
		return fmt.Errorf("failed to list participants: %w", err)
	}
	s.publish(ctx, realtime.ParticipantsUpdate(token, participants))
	return nil
}

// GetSessionView returns what a participant sees of a session.
func (s *OnlineSessionService) GetSessionView(ctx context.Context, user models.Identity, token string) (*models.SessionView, error) {
	record, err := s.loadForMember(ctx, user, token)
	if err != nil {
		return nil, err
	}

	files, err := s.store.LRange(ctx, repository.FilesKey(token))
	if err != nil {
		return nil, fmt.Errorf("failed to list session files: %w", err)
	}
	participants, err := s.store.SMembers(ctx, repository.ParticipantsKey(token))
	if err != nil {
		return nil, fmt.Errorf("failed to list participants: %w", err)
	}

	return &models.SessionView{
		Token:        token,
		SessionName:  record.OwnerName,
		IsOwner:      record.IsOwner(user.IDString()),
		AutoExpire:   record.AutoExpireMinutes,
		Files:        files,
		Participants: participants,
		CreatedAt:    record.CreatedAt,
	}, nil
}

// ListFiles returns the registered files of a session in upload order.
func (s *OnlineSessionService) ListFiles(ctx context.Context, user models.Identity, token string) ([]string, error) {
	if _, err := s.loadForMember(ctx, user, token); err != nil {
		return nil, err
	}

	files, err := s.store.LRange(ctx, repository.FilesKey(token))
	if err != nil {
		return nil, fmt.Errorf("failed to list session files: %w", err)
	}
	return files, nil
}

// UploadFile stores a file in the session folder, registers it and returns
// the name it was stored under. The file is written before it is registered.
func (s *OnlineSessionService) UploadFile(ctx context.Context, user models.Identity, token, name string, content io.Reader) (string, error) {
	if _, err := s.loadForMember(ctx, user, token); err != nil {
		return "", err
	}
	if content == nil || strings.TrimSpace(name) == "" {
		return "", utils.NewNoFileError()
	}

	filename, err := s.files.Save(filestore.OnlineFolder(token), name, content)
	if err != nil {
		if errors.Is(err, filestore.ErrEmptyFilename) {
			return "", utils.NewNoFileError()
		}
		return "", fmt.Errorf("failed to store file: %w", err)
	}

	if err := s.store.RPush(ctx, repository.FilesKey(token), filename); err != nil {
		return "", fmt.Errorf("failed to register file: %w", err)
	}
	s.refreshTTL(ctx, token)

	log.Info().
		Str("token", utils.RedactToken(token)).
		Str("filename", filename).
		Str("uploader", user.Name).
		Msg("File uploaded")

	s.publish(ctx, realtime.FileAdded(token, filename, user.Name))
	return filename, nil
}

// DownloadFile opens a registered file of a session. The caller closes it.
func (s *OnlineSessionService) DownloadFile(ctx context.Context, user models.Identity, token, name string) (afero.File, string, error) {
	if _, err := s.loadForMember(ctx, user, token); err != nil {
		return nil, "", err
	}

	filename := filestore.SanitizeFilename(name)
	files, err := s.store.LRange(ctx, repository.FilesKey(token))
	if err != nil {
		return nil, "", fmt.Errorf("failed to list session files: %w", err)
	}
	if filename == "" || !utils.ContainsString(files, filename) {
		return nil, "", utils.NewFileNotFoundError(name)
	}

	f, stored, err := s.files.Open(filestore.OnlineFolder(token), filename)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, "", utils.NewFileNotFoundError(name)
		}
		return nil, "", fmt.Errorf("failed to open file: %w", err)
	}
	return f, stored, nil
}

// EndSession closes a session, removes its folder and deletes its keys.
// Only the owner may end a session.
func (s *OnlineSessionService) EndSession(ctx context.Context, callerID, token string) error {
	record, err := s.load(ctx, token)
	if err != nil {
		return err
	}
	if !record.IsOwner(callerID) {
		utils.LogSessionEvent("online_end", token, callerID, false, "not the owner")
		return utils.NewForbiddenError("Only the session owner can end the session")
	}

	if err := s.store.HSet(ctx, repository.RecordKey(token), map[string]string{constants.FieldClosed: constants.ClosedTrue}); err != nil {
		return fmt.Errorf("failed to close session: %w", err)
	}

	if err := s.files.RemoveFolder(filestore.OnlineFolder(token)); err != nil {
		log.Warn().Err(err).Str("token", utils.RedactToken(token)).Msg("Failed to remove session folder")
	}

	if err := s.store.Delete(ctx, repository.SessionKeys(token)...); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	utils.LogSessionEvent("online_end", token, callerID, true, "")
	s.publish(ctx, realtime.SessionEnded(token))
	return nil
}

// SetAutoExpire makes a session expire the given number of minutes from now.
// Only the owner may change it.
func (s *OnlineSessionService) SetAutoExpire(ctx context.Context, callerID, token string, minutes int) error {
	if minutes <= 0 {
		return utils.NewBadRequestError("minutes must be positive")
	}
	if minutes > constants.MaxAutoExpireMinutes {
		return utils.NewBadRequestError(fmt.Sprintf("minutes must not exceed %d", constants.MaxAutoExpireMinutes))
	}

	record, err := s.load(ctx, token)
	if err != nil {
		return err
	}
	if !record.IsOwner(callerID) {
		return utils.NewForbiddenError("Only the session owner can change the expiry")
	}

	if err := s.store.HSet(ctx, repository.RecordKey(token), map[string]string{constants.FieldAutoExpire: strconv.Itoa(minutes)}); err != nil {
		return fmt.Errorf("failed to store expiry: %w", err)
	}
	if err := s.applyTTL(ctx, token, time.Duration(minutes)*time.Minute); err != nil {
		return err
	}

	log.Info().Str("token", utils.RedactToken(token)).Int("minutes", minutes).Msg("Session expiry set")
	s.publish(ctx, realtime.AutoExpireSet(token, minutes))
	return nil
}

// IsParticipant reports whether user has joined a session.
func (s *OnlineSessionService) IsParticipant(ctx context.Context, user models.Identity, token string) (bool, error) {
	if _, err := s.load(ctx, token); err != nil {
		return false, err
	}
	ok, err := s.store.SIsMember(ctx, repository.ParticipantsKey(token), user.Name)
	if err != nil {
		return false, fmt.Errorf("failed to check participant: %w", err)
	}
	return ok, nil
}

// load returns the record of a live session. Closed sessions count as missing.
func (s *OnlineSessionService) load(ctx context.Context, token string) (*models.SessionRecord, error) {
	if token == "" {
		return nil, utils.NewSessionNotFoundError(token)
	}

	fields, err := s.store.HGetAll(ctx, repository.RecordKey(token))
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	record, err := models.SessionRecordFromFields(token, fields)
	if err != nil {
		return nil, fmt.Errorf("failed to decode session: %w", err)
	}
	if record == nil || record.Closed {
		return nil, utils.NewSessionNotFoundError(token)
	}
	return record, nil
}

func (s *OnlineSessionService) loadForMember(ctx context.Context, user models.Identity, token string) (*models.SessionRecord, error) {
	record, err := s.load(ctx, token)
	if err != nil {
		return nil, err
	}

	ok, err := s.store.SIsMember(ctx, repository.ParticipantsKey(token), user.Name)
	if err != nil {
		return nil, fmt.Errorf("failed to check participant: %w", err)
	}
	if !ok {
		return nil, utils.NewNotAMemberError()
	}
	return record, nil
}

// applyTTL sets the same lifetime on all keys of a session.
func (s *OnlineSessionService) applyTTL(ctx context.Context, token string, ttl time.Duration) error {
	for _, key := range repository.SessionKeys(token) {
		if err := s.store.Expire(ctx, key, ttl); err != nil {
			return fmt.Errorf("failed to set session expiry: %w", err)
		}
	}
	return nil
}

// refreshTTL copies the remaining lifetime of the record onto the
// participant set and file list, which may have been created after it.
func (s *OnlineSessionService) refreshTTL(ctx context.Context, token string) {
	ttl, err := s.store.TTL(ctx, repository.RecordKey(token))
	if err != nil {
		log.Warn().Err(err).Str("token", utils.RedactToken(token)).Msg("Failed to read session expiry")
		return
	}
	if ttl <= 0 {
		return
	}
	for _, key := range []string{repository.ParticipantsKey(token), repository.FilesKey(token)} {
		if err := s.store.Expire(ctx, key, ttl); err != nil {
			log.Warn().Err(err).Str("key", key).Msg("Failed to refresh session expiry")
		}
	}
}

func (s *OnlineSessionService) publish(ctx context.Context, event realtime.Event) {
	if err := s.publisher.Publish(ctx, event); err != nil {
		log.Warn().
			Err(err).
			Str("token", utils.RedactToken(event.Token)).
			Str("event", event.Type).
			Msg("Failed to publish session event")
	}
}
