package service

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/noah-isme/atlas-logistics-api/internal/models"
	"github.com/noah-isme/atlas-logistics-api/internal/observability"
	"github.com/noah-isme/atlas-logistics-api/pkg/broker"
	"github.com/noah-isme/atlas-logistics-api/pkg/mailer"
)

// ShipmentNotifier tells customers about their shipment.
type ShipmentNotifier interface {
	ShipmentCreated(ctx context.Context, shipment models.Shipment) error
	StatusChanged(ctx context.Context, shipment models.Shipment, event models.ShipmentEvent) error
}

// StatusPublisher announces committed status changes to other systems.
type StatusPublisher interface {
	PublishStatusChange(ctx context.Context, change StatusChange) error
}

type mailNotifier struct {
	sender  mailer.Sender
	baseURL string
	logger  zerolog.Logger
}

// NewMailNotifier sends customer emails through the given sender.
// baseURL is the public origin used to build tracking links.
func NewMailNotifier(sender mailer.Sender, baseURL string, logger zerolog.Logger) ShipmentNotifier {
	return &mailNotifier{
		sender:  sender,
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  logger.With().Str("component", "shipment_notifier").Logger(),
	}
}

func (n *mailNotifier) trackingURL(trackingNumber string) string {
	return fmt.Sprintf("%s/track/%s", n.baseURL, url.PathEscape(trackingNumber))
}

func (n *mailNotifier) ShipmentCreated(ctx context.Context, shipment models.Shipment) error {
	if strings.TrimSpace(shipment.CustomerEmail) == "" {
		return nil
	}

	eta := ""
	if shipment.EstimatedDelivery != nil {
		eta = shipment.EstimatedDelivery.UTC().Format("02 Jan 2006")
	}

	html, err := mailer.Render("shipment_created.html", map[string]string{
		"TrackingNumber":    shipment.TrackingNumber,
		"Origin":            shipment.Origin,
		"Destination":       shipment.Destination,
		"EstimatedDelivery": eta,
		"TrackingURL":       n.trackingURL(shipment.TrackingNumber),
	})
	if err != nil {
		return err
	}

	return n.send(ctx, mailer.Message{
		To:      shipment.CustomerEmail,
		Subject: fmt.Sprintf("Shipment %s registered", shipment.TrackingNumber),
		HTML:    html,
	})
}

func (n *mailNotifier) StatusChanged(ctx context.Context, shipment models.Shipment, event models.ShipmentEvent) error {
	if strings.TrimSpace(shipment.CustomerEmail) == "" {
		return nil
	}

	html, err := mailer.Render("status_changed.html", map[string]string{
		"TrackingNumber": shipment.TrackingNumber,
		"Status":         strings.ReplaceAll(string(event.Status), "_", " "),
		"Location":       event.Location,
		"Description":    event.Description,
		"TrackingURL":    n.trackingURL(shipment.TrackingNumber),
	})
	if err != nil {
		return err
	}

	return n.send(ctx, mailer.Message{
		To:      shipment.CustomerEmail,
		Subject: fmt.Sprintf("Shipment %s: %s", shipment.TrackingNumber, strings.ReplaceAll(string(event.Status), "_", " ")),
		HTML:    html,
	})
}

func (n *mailNotifier) send(ctx context.Context, msg mailer.Message) error {
	if err := n.sender.Send(ctx, msg); err != nil {
		observability.Notifications().WithLabelValues("failed").Inc()
		return err
	}
	observability.Notifications().WithLabelValues("sent").Inc()
	return nil
}

type natsStatusPublisher struct {
	publisher *broker.Publisher
}

// NewNATSStatusPublisher publishes status changes on "<prefix>.shipments.status".
func NewNATSStatusPublisher(publisher *broker.Publisher) StatusPublisher {
	return &natsStatusPublisher{publisher: publisher}
}

type statusChangeEvent struct {
	ShipmentID     uint                  `json:"shipment_id"`
	TrackingNumber string                `json:"tracking_number"`
	Previous       models.ShipmentStatus `json:"previous_status"`
	Current        models.ShipmentStatus `json:"status"`
	Trigger        string                `json:"trigger"`
	OccurredAt     time.Time             `json:"occurred_at"`
}

func (p *natsStatusPublisher) PublishStatusChange(_ context.Context, change StatusChange) error {
	return p.publisher.PublishJSON("shipments.status", statusChangeEvent{
		ShipmentID:     change.ShipmentID,
		TrackingNumber: change.TrackingNumber,
		Previous:       change.Previous,
		Current:        change.Current,
		Trigger:        change.Trigger,
		OccurredAt:     change.At.UTC(),
	})
}
