package admin

import (
	"fmt"
	"strings"

	"doflow-backend/internal/audit"
	"doflow-backend/internal/auth"
	"doflow-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type CreateClientRequest struct {
	Name      string `json:"name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	VATNumber string `json:"vat_number"`
	Address   string `json:"address"`
}

// GET /api/clients?q=rossi
func ListClientsHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		companyID, err := auth.CompanyID(c)
		if err != nil {
			return err
		}

		dbq := db.Where("company_id = ?", companyID)
		if q := strings.TrimSpace(c.Query("q")); q != "" {
			dbq = dbq.Where("LOWER(name) LIKE ?", "%"+strings.ToLower(q)+"%")
		}

		var clients []models.Client
		if err := dbq.Order("name").Find(&clients).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Clienti non elencati")
		}
		return c.JSON(clients)
	}
}

// POST /api/clients
func CreateClientHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.ActorFrom(c)
		if err != nil {
			return err
		}

		var body CreateClientRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Corpo della richiesta non valido")
		}
		body.Name = strings.TrimSpace(body.Name)
		if body.Name == "" {
			return fiber.NewError(fiber.StatusBadRequest, "Il nome del cliente è obbligatorio")
		}

		client := models.Client{
			CompanyID: actor.CompanyID,
			Name:      body.Name,
			Email:     strings.ToLower(strings.TrimSpace(body.Email)),
			Phone:     strings.TrimSpace(body.Phone),
			VATNumber: strings.TrimSpace(body.VATNumber),
			Address:   body.Address,
		}
		if err := db.Create(&client).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Cliente non creato")
		}

		audit.Record(c, db, actor, audit.EntityClient, client.ID, models.AuditActionCreate,
			fmt.Sprintf("Cliente aggiunto: %s", client.Name), nil, client)

		return c.Status(fiber.StatusCreated).JSON(client)
	}
}
