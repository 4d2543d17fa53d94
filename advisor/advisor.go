package advisor

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"google.golang.org/genai"
	"gorm.io/gorm"

	"github.com/foodlens/food-lens-server/config"
	"github.com/foodlens/food-lens-server/models"
)

const defaultTextModel = "gemini-2.5-flash"

const fallbackResponse = "I'm here to help with nutritional information and menu guidance. " +
	"Could you please rephrase your question or ask about a specific food item?"

// Service answers customer questions about a restaurant's menu using
// the Gemini text model, with the live menu injected as context.
type Service struct {
	client *genai.Client
	db     *gorm.DB
	model  string
	log    *logrus.Logger
}

func New(client *genai.Client, db *gorm.DB, log *logrus.Logger) *Service {
	return &Service{
		client: client,
		db:     db,
		model:  config.ConfigDefault("TEXT_MODEL", defaultTextModel),
		log:    log,
	}
}

// DishContext narrows a question to one menu item.
type DishContext struct {
	ItemID uuid.UUID
	Name   string
}

func (s *Service) Query(ctx context.Context, restaurantID uuid.UUID, query string, dish *DishContext) (string, error) {
	if query == "" {
		return "", errors.New("query is required")
	}

	var items []models.MenuItem
	if err := s.db.WithContext(ctx).
		Where("restaurant_id = ?", restaurantID).
		Order("created_at desc").
		Find(&items).Error; err != nil {
		return "", fmt.Errorf("load menu: %w", err)
	}

	prompt := buildAdvisorPrompt(items, query, dish)

	result, err := s.client.Models.GenerateContent(
		ctx,
		s.model,
		genai.Text(prompt),
		&genai.GenerateContentConfig{},
	)
	if err != nil {
		return "", fmt.Errorf("advisor model call: %w", err)
	}

	answer := extractText(result)
	if strings.TrimSpace(answer) == "" {
		s.log.WithField("restaurant_id", restaurantID).Warn("advisor returned empty response")
		return fallbackResponse, nil
	}
	return answer, nil
}

func buildAdvisorPrompt(items []models.MenuItem, query string, dish *DishContext) string {
	var b strings.Builder

	b.WriteString("You are a friendly menu advisor for a restaurant. ")
	b.WriteString("Answer the customer's question using only the menu below. ")
	b.WriteString("Keep answers short, helpful and food-focused.\n\nMenu:\n")

	for _, item := range items {
		fmt.Fprintf(&b, "- %s ($%.2f)", item.Name, item.Price)
		if item.Cuisine != "" {
			fmt.Fprintf(&b, " [%s]", item.Cuisine)
		}
		if item.Description != "" {
			fmt.Fprintf(&b, ": %s", item.Description)
		}
		b.WriteString("\n")
	}
	if len(items) == 0 {
		b.WriteString("(no items yet)\n")
	}

	if dish != nil && dish.Name != "" {
		fmt.Fprintf(&b, "\nThe customer is asking about: %s\n", dish.Name)
	}

	fmt.Fprintf(&b, "\nCustomer question: %s", query)
	return b.String()
}

func extractText(result *genai.GenerateContentResponse) string {
	if result == nil || len(result.Candidates) == 0 || result.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range result.Candidates[0].Content.Parts {
		if part.Text != "" {
			b.WriteString(part.Text)
		}
	}
	return b.String()
}
