package handlers

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/checkout/session"
	"github.com/stripe/stripe-go/v79/webhook"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"tourbook/internal/apperr"
	"tourbook/internal/config"
	"tourbook/internal/middleware"
	"tourbook/internal/models"
)

// Bookings is the booking entity descriptor for the admin CRUD routes.
func Bookings() Resource[models.Booking] {
	return Resource[models.Booking]{
		Collection:   "bookings",
		Name:         "booking",
		Plural:       "bookings",
		BeforeCreate: prepareBooking,
	}
}

func prepareBooking(c *gin.Context, db *mongo.Database, booking *models.Booking) error {
	booking.ID = primitive.NilObjectID
	if booking.Tour.IsZero() || booking.User.IsZero() {
		return apperr.BadRequest("A booking must reference a tour and a user.")
	}
	booking.CreatedAt = time.Now()
	return nil
}

// GetCheckoutSession opens a payment-gateway checkout for the requested tour
// on behalf of the acting user.
func GetCheckoutSession(db *mongo.Database) gin.HandlerFunc {
	return wrap(func(c *gin.Context) error {
		user, ok := middleware.CurrentUser(c)
		if !ok {
			return apperr.Unauthorized("You are not logged in. Please log in to get access.")
		}

		tourID, err := primitive.ObjectIDFromHex(c.Param("tourId"))
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), dbTimeout)
		defer cancel()

		var tour models.Tour
		err = db.Collection("tours").FindOne(ctx, bson.M{"_id": tourID}).Decode(&tour)
		if err == mongo.ErrNoDocuments {
			return apperr.NotFound("No tour found with that ID.")
		}
		if err != nil {
			return err
		}

		stripe.Key = config.AppEnv.StripeKey

		params := &stripe.CheckoutSessionParams{
			Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
			PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
			SuccessURL:         stripe.String(requestOrigin(c) + "/my-tours"),
			CancelURL:          stripe.String(requestOrigin(c) + "/tour/" + tour.Slug),
			CustomerEmail:      stripe.String(user.Email),
			ClientReferenceID:  stripe.String(tourID.Hex()),
			LineItems: []*stripe.CheckoutSessionLineItemParams{{
				Quantity: stripe.Int64(1),
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:   stripe.String("usd"),
					UnitAmount: stripe.Int64(int64(tour.Price * 100)),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name:        stripe.String(tour.Name + " Tour"),
						Description: stripe.String(tour.Summary),
					},
				},
			}},
		}

		checkout, err := session.New(params)
		if err != nil {
			return err
		}

		c.JSON(http.StatusOK, gin.H{
			"status":  "success",
			"session": checkout,
		})
		return nil
	})
}

// WebhookCheckout handles the raw-body payment webhook: after signature
// verification, a completed checkout session becomes a paid booking.
func WebhookCheckout(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		payload, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"status": "fail", "message": "invalid body"})
			return
		}

		event, err := webhook.ConstructEvent(payload,
			c.GetHeader("Stripe-Signature"), config.AppEnv.StripeHook)
		if err != nil {
			log.Println("[BOOKING] [ERROR] webhook signature verification failed:", err)
			c.JSON(http.StatusBadRequest, gin.H{"status": "fail", "message": "webhook signature verification failed"})
			return
		}

		if string(event.Type) == "checkout.session.completed" {
			var checkout stripe.CheckoutSession
			if err := json.Unmarshal(event.Data.Raw, &checkout); err != nil {
				log.Println("[BOOKING] [ERROR] webhook payload decode failed:", err)
				c.JSON(http.StatusBadRequest, gin.H{"status": "fail", "message": "invalid event payload"})
				return
			}
			if err := createBookingFromCheckout(c.Request.Context(), db, checkout); err != nil {
				log.Println("[BOOKING] [ERROR] booking creation failed:", err)
				c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": "booking creation failed"})
				return
			}
		}

		c.JSON(http.StatusOK, gin.H{"received": true})
	}
}

func createBookingFromCheckout(ctx context.Context, db *mongo.Database, checkout stripe.CheckoutSession) error {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	tourID, err := primitive.ObjectIDFromHex(checkout.ClientReferenceID)
	if err != nil {
		return err
	}

	var user models.User
	err = db.Collection("users").
		FindOne(ctx, bson.M{"email": checkout.CustomerEmail}).
		Decode(&user)
	if err != nil {
		return err
	}

	booking := models.Booking{
		Tour:      tourID,
		User:      user.ID,
		Price:     float64(checkout.AmountTotal) / 100,
		Paid:      true,
		CreatedAt: time.Now(),
	}

	_, err = db.Collection("bookings").InsertOne(ctx, booking)
	if err != nil {
		return err
	}

	log.Println("[BOOKING] [INFO] booking created from checkout:", checkout.ID)
	return nil
}
