package auth

import (
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"

	"evcs/internal"
	"evcs/models"
	"evcs/types"
	"evcs/utility"
)

const featureName = "Authorize"

// TagStore is the subset of the database the engine needs.
type TagStore interface {
	GetUserTag(id string) (*models.UserTag, error)
	UpdateUserTag(userTag *models.UserTag) error
	AddAuthorizationRecord(record *models.AuthorizationRecord) error
}

// AccountService answers account-level questions the tag store cannot:
// whether a tag owner is in good standing, and whether a charge point
// belongs to an account with an active pricing plan.
type AccountService interface {
	CanAuthenticate(userId string) (bool, error)
	HasActivePlan(chargePointId string) (bool, error)
}

type Engine struct {
	store    TagStore
	accounts AccountService
	blocked  []string
	logger   internal.LogHandler
}

func NewEngine(store TagStore, blocked []string) *Engine {
	return &Engine{
		store:   store,
		blocked: blocked,
	}
}

func (e *Engine) SetAccountService(accounts AccountService) {
	e.accounts = accounts
}

func (e *Engine) SetLogger(logger internal.LogHandler) {
	e.logger = logger
}

// Authorize resolves an id tag to a decision. The check order is fixed:
// blocklist and expiry short-circuit before any account lookup, so a
// blocked or expired tag can never be rescued by an account match.
// An error is returned only for infrastructure failures; every policy
// outcome is expressed in the returned IdTagInfo status.
func (e *Engine) Authorize(chargePointId, idTag string) (*types.IdTagInfo, error) {
	info, err := e.decide(chargePointId, idTag)
	if err != nil {
		return nil, err
	}
	e.saveRecord(chargePointId, idTag, info)
	return info, nil
}

func (e *Engine) decide(chargePointId, idTag string) (*types.IdTagInfo, error) {
	if utility.Contains(e.blocked, idTag) {
		return types.NewIdTagInfo(types.AuthorizationStatusBlocked), nil
	}

	// Without a tag store every tag is unknown and the unknown-tag
	// policy applies.
	var tag *models.UserTag
	if e.store != nil {
		var err error
		tag, err = e.store.GetUserTag(idTag)
		if err != nil && !isNotFound(err) {
			return nil, utility.InternalErr(fmt.Sprintf("reading tag %s", idTag), err)
		}
	}

	if tag != nil {
		return e.decideKnown(tag)
	}

	// Unknown tag: a charge point without an active pricing plan runs
	// pay-as-you-go and accepts anyone.
	if e.accounts != nil {
		hasPlan, err := e.accounts.HasActivePlan(chargePointId)
		if err != nil {
			return nil, utility.InternalErr("checking pricing plan", err)
		}
		if hasPlan {
			return types.NewIdTagInfo(types.AuthorizationStatusInvalid), nil
		}
	}
	return types.NewIdTagInfo(types.AuthorizationStatusAccepted), nil
}

func (e *Engine) decideKnown(tag *models.UserTag) (*types.IdTagInfo, error) {
	if !tag.IsEnabled || tag.Status == string(types.AuthorizationStatusBlocked) {
		return types.NewIdTagInfo(types.AuthorizationStatusBlocked), nil
	}
	if tag.ExpiryDate != nil && tag.ExpiryDate.Before(time.Now()) {
		return types.NewIdTagInfo(types.AuthorizationStatusExpired), nil
	}
	if e.accounts != nil && tag.UserId != "" {
		ok, err := e.accounts.CanAuthenticate(tag.UserId)
		if err != nil {
			return nil, utility.InternalErr("checking account", err)
		}
		if !ok {
			return types.NewIdTagInfo(types.AuthorizationStatusInvalid), nil
		}
	}

	status := types.AuthorizationStatus(tag.Status)
	if status == "" {
		status = types.AuthorizationStatusAccepted
	}
	info := types.NewIdTagInfo(status)
	info.ParentIdTag = tag.ParentIdTag
	if tag.ExpiryDate != nil {
		info.ExpiryDate = types.NewDateTime(*tag.ExpiryDate)
	}

	tag.LastSeen = time.Now().UTC()
	if err := e.store.UpdateUserTag(tag); err != nil && e.logger != nil {
		e.logger.Error("updating tag last seen", err)
	}
	return info, nil
}

func (e *Engine) saveRecord(chargePointId, idTag string, info *types.IdTagInfo) {
	if e.logger != nil {
		e.logger.FeatureEvent(featureName, chargePointId, fmt.Sprintf("tag %s: %s", idTag, info.Status))
	}
	if e.store == nil {
		return
	}
	record := &models.AuthorizationRecord{
		ChargePointId: chargePointId,
		IdTag:         idTag,
		Status:        string(info.Status),
		ParentIdTag:   info.ParentIdTag,
		Time:          time.Now().UTC(),
	}
	if info.ExpiryDate != nil {
		expiry := info.ExpiryDate.Time
		record.ExpiryDate = &expiry
	}
	if err := e.store.AddAuthorizationRecord(record); err != nil && e.logger != nil {
		e.logger.Error("saving authorization record", err)
	}
}

func isNotFound(err error) bool {
	return errors.Is(err, mongo.ErrNoDocuments) || utility.IsCode(err, utility.CodeNotFound)
}
