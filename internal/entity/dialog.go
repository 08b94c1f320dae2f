package entity

import (
	"bytes"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var ErrNotParticipant = errors.New("user is not a participant of this dialog")

// Dialog is a two party conversation, optionally about one listing.
// (ParticipantLowID, ParticipantHighID, ListingKey) is unique and the low id
// always sorts before the high id, so (A,B) and (B,A) share one row.
//
// ListingKey mirrors ListingID as text ("" for direct dialogs). Unique
// indexes treat NULLs as distinct, so ListingID alone could not keep direct
// dialogs unique.
type Dialog struct {
	ID                uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	ParticipantLowID  uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_dialogs_pair,priority:1" json:"participant_low_id"`
	ParticipantHighID uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_dialogs_pair,priority:2;index" json:"participant_high_id"`
	ListingKey        string     `gorm:"size:36;not null;default:'';uniqueIndex:idx_dialogs_pair,priority:3" json:"-"`
	ListingID         *uuid.UUID `gorm:"type:uuid;index" json:"listing_id"`
	CreatedAt         time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time  `gorm:"autoUpdateTime;index" json:"updated_at"`

	ParticipantLow  *User     `gorm:"foreignKey:ParticipantLowID;constraint:OnDelete:CASCADE" json:"-"`
	ParticipantHigh *User     `gorm:"foreignKey:ParticipantHighID;constraint:OnDelete:CASCADE" json:"-"`
	Listing         *Listing  `gorm:"foreignKey:ListingID;constraint:OnDelete:SET NULL" json:"-"`
	Messages        []Message `gorm:"foreignKey:DialogID;constraint:OnDelete:CASCADE" json:"-"`
}

func (d *Dialog) BeforeCreate(tx *gorm.DB) (err error) {
	if d.ID == uuid.Nil {
		d.ID, err = uuid.NewV7()
	}
	return
}

// NormalizePair orders two user ids so the smaller one comes first.
func NormalizePair(a, b uuid.UUID) (low, high uuid.UUID) {
	if bytes.Compare(a[:], b[:]) <= 0 {
		return a, b
	}
	return b, a
}

// ListingKeyOf is the text stored in Dialog.ListingKey for a listing id.
func ListingKeyOf(listingID *uuid.UUID) string {
	if listingID == nil {
		return ""
	}
	return listingID.String()
}

// NewDialog builds an unsaved dialog between a and b with the pair already
// normalized.
func NewDialog(a, b uuid.UUID, listingID *uuid.UUID) *Dialog {
	low, high := NormalizePair(a, b)
	return &Dialog{
		ParticipantLowID:  low,
		ParticipantHighID: high,
		ListingID:         listingID,
		ListingKey:        ListingKeyOf(listingID),
	}
}

func (d *Dialog) HasParticipant(userID uuid.UUID) bool {
	return d.ParticipantLowID == userID || d.ParticipantHighID == userID
}

// OtherParticipant returns whichever participant is not userID.
func (d *Dialog) OtherParticipant(userID uuid.UUID) (uuid.UUID, error) {
	switch userID {
	case d.ParticipantLowID:
		return d.ParticipantHighID, nil
	case d.ParticipantHighID:
		return d.ParticipantLowID, nil
	default:
		return uuid.Nil, ErrNotParticipant
	}
}
