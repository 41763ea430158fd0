package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"

	"github.com/yasinhessnawi1/SecureTransfer_Backend/internal/auth"
	"github.com/yasinhessnawi1/SecureTransfer_Backend/internal/config"
	"github.com/yasinhessnawi1/SecureTransfer_Backend/internal/constants"
	"github.com/yasinhessnawi1/SecureTransfer_Backend/internal/filestore"
	"github.com/yasinhessnawi1/SecureTransfer_Backend/internal/models"
	"github.com/yasinhessnawi1/SecureTransfer_Backend/internal/utils"
)

// lanSession is the state of the running LAN session.
type lanSession struct {
	info         models.LANSessionInfo
	passwordHash string
	passwordSalt string
}

// LANSessionService holds the single LAN session slot.
// Creating a session replaces the slot under the write lock; every other
// operation reads it under the read lock.
type LANSessionService struct {
	mu     sync.RWMutex
	active *lanSession

	files        *filestore.Store
	passwordCfg  *auth.PasswordConfig
	lanCfg       *config.LANSettings
	hostResolver func() string
}

// NewLANSessionService creates a new LANSessionService with an empty slot
func NewLANSessionService(files *filestore.Store, passwordCfg *auth.PasswordConfig, lanCfg *config.LANSettings) *LANSessionService {
	return &LANSessionService{
		files:        files,
		passwordCfg:  passwordCfg,
		lanCfg:       lanCfg,
		hostResolver: DetectLANAddress,
	}
}

// SetHostResolver replaces the lookup of the address put in join links.
func (s *LANSessionService) SetHostResolver(resolver func() string) {
	s.hostResolver = resolver
}

// DetectLANAddress returns the address this host uses to reach other
// networks. No packet is sent; dialing UDP only selects a route.
// It falls back to the loopback address.
func DetectLANAddress() string {
	conn, err := net.Dial("udp", constants.LANProbeAddress)
	if err != nil {
		log.Debug().Err(err).Msg("LAN address detection failed, using loopback")
		return constants.LoopbackHost
	}
	defer conn.Close()

	if addr, ok := conn.LocalAddr().(*net.UDPAddr); ok && addr.IP != nil && !addr.IP.IsUnspecified() {
		return addr.IP.String()
	}
	return constants.LoopbackHost
}

// CreateSession starts a new LAN session, ending any previous one.
// Every leftover LAN session folder is removed first.
func (s *LANSessionService) CreateSession(ctx context.Context, owner models.Identity, username, password string) (*models.LANSessionInfo, error) {
	utils.TrimAll(&username, &password)
	if username == "" {
		return nil, utils.NewValidationError("username", "Username is required")
	}
	if password == "" {
		return nil, utils.NewValidationError("password", "Password is required")
	}

	hash, salt, err := auth.HashPassword(password, s.passwordCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to hash session password: %w", err)
	}

	code, err := auth.GenerateOTP()
	if err != nil {
		return nil, fmt.Errorf("failed to generate session code: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	removed, err := s.files.SweepPrefix(constants.LANFolderName, constants.LANSessionDirPrefix)
	if err != nil {
		log.Warn().Err(err).Int("removed", removed).Msg("Some previous LAN session folders could not be removed")
	} else if removed > 0 {
		log.Info().Int("removed", removed).Msg("Removed previous LAN session folders")
	}

	folder := filestore.LANFolder(code)
	if err := s.files.EnsureFolder(folder); err != nil {
		return nil, fmt.Errorf("failed to create session folder: %w", err)
	}

	s.active = &lanSession{
		info: models.LANSessionInfo{
			Username:  username,
			Code:      code,
			Folder:    folder,
			OwnerID:   owner.IDString(),
			PanelLink: s.link(constants.LoopbackHost, constants.LANPanelLinkPath),
			JoinLink:  s.link(s.hostResolver(), constants.LANJoinLinkPath),
			CreatedAt: time.Now().UTC(),
		},
		passwordHash: hash,
		passwordSalt: salt,
	}

	utils.LogSessionEvent("lan_create", code, owner.IDString(), true, "")
	log.Info().
		Str("folder", s.files.AbsPath(folder)).
		Str("join_link", s.active.info.JoinLink).
		Msg("LAN session started")

	info := s.active.info
	return &info, nil
}

func (s *LANSessionService) link(host, path string) string {
	scheme := s.lanCfg.Scheme
	if scheme == "" {
		scheme = "http"
	}
	return fmt.Sprintf("%s://%s%s", scheme, net.JoinHostPort(host, fmt.Sprint(s.lanCfg.PublicPort)), path)
}

// Join checks a receiver's credentials against the running session.
// Any mismatch of username, password or code fails the same way.
func (s *LANSessionService) Join(ctx context.Context, username, password, code string) error {
	utils.TrimAll(&username, &password, &code)

	s.mu.RLock()
	session := s.active
	s.mu.RUnlock()

	if session == nil {
		utils.LogSessionEvent("lan_join", code, "", false, "no active session")
		return utils.NewNoActiveSessionError()
	}

	usernameOK := subtle.ConstantTimeCompare([]byte(username), []byte(session.info.Username)) == 1
	codeOK := subtle.ConstantTimeCompare([]byte(code), []byte(session.info.Code)) == 1

	passwordOK, err := auth.VerifyPassword(password, session.passwordHash, session.passwordSalt, s.passwordCfg)
	if err != nil {
		return fmt.Errorf("failed to verify session password: %w", err)
	}

	if !usernameOK || !codeOK || !passwordOK {
		utils.LogSessionEvent("lan_join", code, "", false, "invalid credentials")
		return utils.NewAuthFailedError()
	}

	utils.LogSessionEvent("lan_join", code, "", true, "")
	return nil
}

// Active reports whether a LAN session is running.
func (s *LANSessionService) Active() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active != nil
}

// Info returns a copy of the running session's details.
func (s *LANSessionService) Info() (*models.LANSessionInfo, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.active == nil {
		return nil, false
	}
	info := s.active.info
	return &info, true
}

// ListFiles returns the files of the running session in name order.
// Without a session the list is empty.
func (s *LANSessionService) ListFiles(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.active == nil {
		return []string{}, nil
	}

	files, err := s.files.List(s.active.info.Folder)
	if err != nil {
		return nil, fmt.Errorf("failed to list session files: %w", err)
	}
	return files, nil
}

// Upload stores a file in the running session and returns the name it was stored under.
func (s *LANSessionService) Upload(ctx context.Context, name string, content io.Reader) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.active == nil {
		return "", utils.NewNoActiveSessionError()
	}
	if content == nil || strings.TrimSpace(name) == "" {
		return "", utils.NewNoFileError()
	}

	filename, err := s.files.Save(s.active.info.Folder, name, content)
	if err != nil {
		if errors.Is(err, filestore.ErrEmptyFilename) {
			return "", utils.NewNoFileError()
		}
		return "", fmt.Errorf("failed to store file: %w", err)
	}

	log.Info().
		Str("token", utils.RedactToken(s.active.info.Code)).
		Str("filename", filename).
		Msg("LAN file uploaded")
	return filename, nil
}

// Download opens a file of the running session. The caller closes it.
func (s *LANSessionService) Download(ctx context.Context, name string) (afero.File, string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.active == nil {
		return nil, "", utils.NewNotFoundError("LAN session", "active")
	}

	f, filename, err := s.files.Open(s.active.info.Folder, name)
	if err != nil {
		if os.IsNotExist(err) || errors.Is(err, filestore.ErrPathTraversal) {
			return nil, "", utils.NewFileNotFoundError(name)
		}
		return nil, "", fmt.Errorf("failed to open file: %w", err)
	}
	return f, filename, nil
}

// EndSession ends the running session and removes its folder.
// Only the owner may end a session that has one.
func (s *LANSessionService) EndSession(ctx context.Context, callerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active == nil {
		return utils.NewNotFoundError("LAN session", "active")
	}
	if s.active.info.OwnerID != "" && s.active.info.OwnerID != callerID {
		utils.LogSessionEvent("lan_end", s.active.info.Code, callerID, false, "not the owner")
		return utils.NewForbiddenError("Only the session owner can end the session")
	}

	if err := s.files.RemoveFolder(s.active.info.Folder); err != nil {
		log.Warn().Err(err).Str("folder", s.active.info.Folder).Msg("Failed to remove LAN session folder")
	}

	utils.LogSessionEvent("lan_end", s.active.info.Code, callerID, true, "")
	s.active = nil
	return nil
}
