package chat

import (
	"context"
	"sort"
	"strings"

	"go.uber.org/zap"

	apperrors "github.com/go-demo/roomchat/internal/pkg/errors"
	"github.com/go-demo/roomchat/internal/pkg/utils"
)

const (
	DefaultMaxUsers = 10
	MinMaxUsers     = 2
	MaxMaxUsers     = 50

	codeAttempts = 16
)

// CreateRoomParams is a client's request for a new room. The creator joins
// it as admin under Username.
type CreateRoomParams struct {
	Username    string
	Name        string
	Description string
	Category    string
	MaxUsers    int
	Password    string
	Duration    string
	IsModerated *bool
	IsPrivate   bool
	Code        string
}

// roomSpec is a validated CreateRoomParams.
type roomSpec struct {
	displayName string
	name        string
	description string
	category    Category
	maxUsers    int
	duration    Duration
	password    string
	moderated   bool
	private     bool
	code        string
}

// CreateRoom runs the creation pipeline for identity: rate limit, input
// validation, password hashing and code allocation. On success the creator
// leaves any previous room, joins the new one as admin and receives
// room-created followed by room-joined.
//
// A request that passes the rate limit consumes a slot even when a later
// step rejects it.
func (s *Service) CreateRoom(ctx context.Context, identity string, params CreateRoomParams) (RoomSummary, error) {
	allowed, err := s.limiter.Allow(ctx, identity)
	if err != nil {
		s.logger.Error("Room creation limit check failed",
			zap.String("identity", identity),
			zap.Error(err),
		)
		return RoomSummary{}, apperrors.Wrap(err, apperrors.ErrRateLimitExceeded.Code,
			apperrors.KindRateLimitExceeded, "room creation is temporarily unavailable")
	}
	if !allowed {
		return RoomSummary{}, apperrors.ErrRateLimitExceeded
	}

	spec, err := s.validateRoom(params)
	if err != nil {
		return RoomSummary{}, err
	}

	var passwordHash string
	if spec.password != "" {
		passwordHash, err = utils.HashPasswordWithCost(spec.password, s.cfg.PasswordCost)
		if err != nil {
			return RoomSummary{}, apperrors.Wrap(err, apperrors.ErrInternal.Code, apperrors.KindInternal, "could not secure room password")
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	code := spec.code
	if code != "" {
		if _, taken := s.rooms[code]; taken {
			return RoomSummary{}, apperrors.ErrValidation.WithMessage("room code already in use")
		}
	} else if code, err = s.allocateCodeLocked(); err != nil {
		return RoomSummary{}, err
	}

	now := s.clock.Now()
	room := &Room{
		ID:           code,
		Name:         spec.name,
		Description:  spec.description,
		Category:     spec.category,
		MaxUsers:     spec.maxUsers,
		Duration:     spec.duration,
		Admin:        identity,
		CreatedBy:    identity,
		CreatedAt:    now,
		LastActivity: now,
		IsModerated:  spec.moderated,
		IsPrivate:    spec.private,
		passwordHash: passwordHash,
	}
	s.rooms[code] = room

	s.leaveLocked(identity, true)
	s.enterLocked(identity, spec.displayName, room)

	summary := room.Summary()
	s.send(identity, EventRoomCreated, summary)
	s.send(identity, EventRoomJoined, s.snapshotLocked(identity, room))

	s.recordAudit(room.ID, identity, spec.displayName, AuditRoomCreated, room.Name)
	s.logger.Info("Room created",
		zap.String("room_id", room.ID),
		zap.String("name", room.Name),
		zap.String("admin", identity),
		zap.Int("max_users", room.MaxUsers),
		zap.String("duration", string(room.Duration)),
	)

	return summary, nil
}

// validateRoom checks params in a fixed order and returns the first failure.
func (s *Service) validateRoom(params CreateRoomParams) (roomSpec, error) {
	name := strings.TrimSpace(params.Name)
	v := utils.NewValidator()
	if !v.ValidateRoomName("name", name) {
		return roomSpec{}, validationError(v)
	}
	if err := s.filter.EnforceClean(name); err != nil {
		return roomSpec{}, apperrors.ErrContentRejected.WithMessage("room name contains inappropriate content")
	}

	description := utils.Truncate(strings.TrimSpace(params.Description), utils.MaxDescriptionLength)
	if description != "" {
		if err := s.filter.EnforceClean(description); err != nil {
			return roomSpec{}, apperrors.ErrContentRejected.WithMessage("room description contains inappropriate content")
		}
	}

	maxUsers := params.MaxUsers
	if maxUsers == 0 {
		maxUsers = DefaultMaxUsers
	}
	maxUsers = clamp(maxUsers, MinMaxUsers, MaxMaxUsers)

	if !v.ValidateRoomPassword("password", params.Password) {
		return roomSpec{}, validationError(v)
	}

	code := utils.NormalizeRoomCode(params.Code)
	if code != "" && !utils.IsValidRoomCode(code) {
		return roomSpec{}, apperrors.ErrValidation.WithMessage("room code must be 6 letters or digits")
	}

	displayName, err := s.resolveDisplayName(params.Username, false)
	if err != nil {
		return roomSpec{}, err
	}

	moderated := true
	if params.IsModerated != nil {
		moderated = *params.IsModerated
	}

	return roomSpec{
		displayName: displayName,
		name:        name,
		description: description,
		category:    ParseCategory(params.Category),
		maxUsers:    maxUsers,
		duration:    ParseDuration(params.Duration),
		password:    params.Password,
		moderated:   moderated,
		private:     params.IsPrivate,
		code:        code,
	}, nil
}

// resolveDisplayName trims name and checks it. With allowGuest an empty
// name becomes a generated guest name.
func (s *Service) resolveDisplayName(name string, allowGuest bool) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" && allowGuest {
		return utils.GenerateGuestName(), nil
	}

	v := utils.NewValidator()
	if !v.ValidateDisplayName("username", name) {
		return "", validationError(v)
	}
	if err := s.filter.EnforceClean(name); err != nil {
		return "", apperrors.ErrContentRejected.WithMessage("username contains inappropriate content")
	}
	return name, nil
}

func validationError(v *utils.Validator) error {
	errs := v.Errors()
	return apperrors.ErrValidation.WithMessage(errs.Error()).WithDetails(errs)
}

func (s *Service) allocateCodeLocked() (string, error) {
	for i := 0; i < codeAttempts; i++ {
		code := utils.GenerateRoomCode()
		if _, taken := s.rooms[code]; !taken {
			return code, nil
		}
	}
	return "", apperrors.ErrInternal.WithMessage("could not allocate a room code")
}

// FindRoom looks a room up by code, ignoring case.
func (s *Service) FindRoom(code string) (RoomSummary, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	room, ok := s.rooms[utils.NormalizeRoomCode(code)]
	if !ok {
		return RoomSummary{}, false
	}
	return room.Summary(), true
}

// ListRooms returns summaries with the general room first and the rest by
// creation time. Private rooms are included only when includePrivate is set.
func (s *Service) ListRooms(includePrivate bool) []RoomSummary {
	s.mu.Lock()
	defer s.mu.Unlock()

	rooms := make([]*Room, 0, len(s.rooms))
	for _, room := range s.rooms {
		if room.IsPrivate && !includePrivate {
			continue
		}
		rooms = append(rooms, room)
	}

	sort.Slice(rooms, func(i, j int) bool {
		a, b := rooms[i], rooms[j]
		if a.general != b.general {
			return a.general
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})

	summaries := make([]RoomSummary, 0, len(rooms))
	for _, room := range rooms {
		summaries = append(summaries, room.Summary())
	}
	return summaries
}

// DeleteRoom removes an empty, non-general room.
func (s *Service) DeleteRoom(code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	room, ok := s.rooms[utils.NormalizeRoomCode(code)]
	if !ok {
		return apperrors.ErrRoomNotFound
	}
	if room.general {
		return apperrors.ErrValidation.WithMessage("the general room cannot be deleted")
	}
	if !room.IsEmpty() {
		return apperrors.ErrValidation.WithMessage("room still has members")
	}

	s.deleteRoomLocked(room, "deleted")
	return nil
}

func (s *Service) deleteRoomLocked(room *Room, reason string) {
	if room.general || !room.IsEmpty() {
		return
	}
	delete(s.rooms, room.ID)

	s.recordAudit(room.ID, "", "", AuditRoomDeleted, reason)
	s.logger.Info("Room deleted",
		zap.String("room_id", room.ID),
		zap.String("name", room.Name),
		zap.String("reason", reason),
	)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
