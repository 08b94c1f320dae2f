package service

import (
	"fmt"
	"html"
	"strings"
	"time"

	"anoa.com/bazaar/internal/entity"
	"github.com/meilisearch/meilisearch-go"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
)

const listingsIndex = "listings"

type MeiliSearchService interface {
	IndexListing(listing *entity.Listing) error
	DeleteListing(id string) error
	GenerateSearchToken() (string, error)
}

type meiliSearchService struct {
	client        meilisearch.ServiceManager
	signingKeyUID string
	signingKey    string
	sanitizer     *bluemonday.Policy
	logger        zerolog.Logger
}

func NewMeiliSearchService(client meilisearch.ServiceManager, logger zerolog.Logger) MeiliSearchService {
	s := &meiliSearchService{
		client:    client,
		sanitizer: bluemonday.StrictPolicy(),
		logger:    logger.With().Str("component", "search").Logger(),
	}
	s.initIndexes()
	s.initSigningKey()
	return s
}

func (s *meiliSearchService) initSigningKey() {
	resp, err := s.client.GetKeys(&meilisearch.KeysQuery{Limit: 20})
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to list meilisearch keys")
		return
	}

	for _, key := range resp.Results {
		if key.Name == "ListingSearchSigner" {
			s.signingKeyUID = key.UID
			s.signingKey = key.Key
			return
		}
	}

	key, err := s.client.CreateKey(&meilisearch.Key{
		Description: "Key to sign listing search tenant tokens",
		Name:        "ListingSearchSigner",
		Actions:     []string{"search"},
		Indexes:     []string{listingsIndex},
		ExpiresAt:   time.Now().AddDate(100, 0, 0),
	})
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to create meilisearch signing key")
		return
	}

	s.signingKeyUID = key.UID
	s.signingKey = key.Key
	s.logger.Info().Msg("created meilisearch signing key")
}

func (s *meiliSearchService) initIndexes() {
	filterable := []any{"status", "city", "seller_id"}
	if _, err := s.client.Index(listingsIndex).UpdateFilterableAttributes(&filterable); err != nil {
		s.logger.Warn().Err(err).Msg("failed to update listings filterable attributes")
	}

	sortable := []string{"created_at", "price"}
	if _, err := s.client.Index(listingsIndex).UpdateSortableAttributes(&sortable); err != nil {
		s.logger.Warn().Err(err).Msg("failed to update listings sortable attributes")
	}
}

type meiliListingDoc struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
	City        string  `json:"city"`
	Status      string  `json:"status"`
	SellerID    string  `json:"seller_id"`
	CreatedAt   int64   `json:"created_at"`
}

// CleanText strips markup and collapses whitespace.
func CleanText(sanitizer *bluemonday.Policy, content string) string {
	content = strings.ReplaceAll(content, "</p>", " ")
	content = strings.ReplaceAll(content, "<br>", " ")
	content = strings.ReplaceAll(content, "</div>", " ")

	clean := html.UnescapeString(sanitizer.Sanitize(content))
	return strings.Join(strings.Fields(clean), " ")
}

func (s *meiliSearchService) IndexListing(listing *entity.Listing) error {
	doc := meiliListingDoc{
		ID:          listing.ID.String(),
		Title:       CleanText(s.sanitizer, listing.Title),
		Description: CleanText(s.sanitizer, listing.Description),
		Price:       listing.Price,
		City:        listing.City,
		Status:      listing.Status,
		SellerID:    listing.SellerID.String(),
		CreatedAt:   listing.CreatedAt.Unix(),
	}

	task, err := s.client.Index(listingsIndex).AddDocuments([]meiliListingDoc{doc}, strPtr("id"))
	if err != nil {
		return err
	}
	s.logger.Debug().Str("listing_id", doc.ID).Int64("task_uid", task.TaskUID).Msg("listing indexed")
	return nil
}

func (s *meiliSearchService) DeleteListing(id string) error {
	_, err := s.client.Index(listingsIndex).DeleteDocument(id)
	return err
}

// GenerateSearchToken issues a tenant token that only sees active listings.
func (s *meiliSearchService) GenerateSearchToken() (string, error) {
	if s.signingKeyUID == "" || s.signingKey == "" {
		return "", fmt.Errorf("signing key not initialized")
	}

	searchRules := map[string]any{
		listingsIndex: map[string]any{
			"filter": fmt.Sprintf("status = '%s'", entity.ListingStatusActive),
		},
	}

	return s.client.GenerateTenantToken(s.signingKeyUID, searchRules, &meilisearch.TenantTokenOptions{
		APIKey:    s.signingKey,
		ExpiresAt: time.Now().Add(24 * time.Hour),
	})
}

func strPtr(s string) *string {
	return &s
}
