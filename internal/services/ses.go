package services

import (
	"context"
	"fmt"
	"html"
	"log"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"

	"plant-shop-platform/internal/models"
)

// SESConfig represents Amazon SES email service configuration
type SESConfig struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	SenderEmail     string
	SenderName      string
}

// SESEmailService sends transactional email via Amazon SES. In sandbox mode
// SES only delivers to verified recipients, so every send checks the
// verified-address registry first and triggers a verification request for
// unverified recipients instead of silently dropping the mail.
type SESEmailService struct {
	config SESConfig
	client *ses.Client
}

// NewSESEmailService creates a new SES email service
func NewSESEmailService(ctx context.Context, config SESConfig) (*SESEmailService, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(config.Region),
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(config.AccessKeyID, config.SecretAccessKey, ""),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &SESEmailService{
		config: config,
		client: ses.NewFromConfig(awsCfg),
	}, nil
}

// SendOrderConfirmation sends the order confirmation email. Returns
// models.ErrRecipientNotVerified (after requesting verification) when the
// recipient address is not yet in the verified registry; the caller treats
// that as a soft warning since the purchase is already fulfilled. Safe to
// call repeatedly for the same order.
func (s *SESEmailService) SendOrderConfirmation(ctx context.Context, order *models.Order) error {
	verified, err := s.isVerified(ctx, order.Email)
	if err != nil {
		return fmt.Errorf("%w: %v", models.ErrNotificationGateway, err)
	}

	if !verified {
		if err := s.RequestVerification(ctx, order.Email); err != nil {
			log.Printf("Warning: failed to request verification for %s: %v", order.Email, err)
		}
		return models.ErrRecipientNotVerified
	}

	subject := fmt.Sprintf("Order Confirmation #%s", order.OrderNumber)
	htmlBody := s.renderConfirmationHTML(order)
	textBody := s.renderConfirmationText(order)

	_, err = s.client.SendEmail(ctx, &ses.SendEmailInput{
		Source: aws.String(s.fromField()),
		Destination: &types.Destination{
			ToAddresses: []string{order.Email},
		},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(subject)},
			Body: &types.Body{
				Html: &types.Content{Data: aws.String(htmlBody)},
				Text: &types.Content{Data: aws.String(textBody)},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("%w: %v", models.ErrNotificationGateway, err)
	}

	return nil
}

// RequestVerification asks SES to send its verification mail to the address.
// Independently retryable; verifying an already-verified address is harmless.
func (s *SESEmailService) RequestVerification(ctx context.Context, email string) error {
	_, err := s.client.VerifyEmailIdentity(ctx, &ses.VerifyEmailIdentityInput{
		EmailAddress: aws.String(email),
	})
	if err != nil {
		return fmt.Errorf("%w: %v", models.ErrNotificationGateway, err)
	}

	return nil
}

func (s *SESEmailService) isVerified(ctx context.Context, email string) (bool, error) {
	resp, err := s.client.ListVerifiedEmailAddresses(ctx, &ses.ListVerifiedEmailAddressesInput{})
	if err != nil {
		return false, err
	}

	for _, addr := range resp.VerifiedEmailAddresses {
		if strings.EqualFold(addr, email) {
			return true, nil
		}
	}

	return false, nil
}

func (s *SESEmailService) fromField() string {
	if s.config.SenderName != "" {
		return fmt.Sprintf("%s <%s>", s.config.SenderName, s.config.SenderEmail)
	}
	return s.config.SenderEmail
}

func (s *SESEmailService) renderConfirmationHTML(order *models.Order) string {
	var b strings.Builder

	fmt.Fprintf(&b, `
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>Order Confirmation</title>
    <style>
        body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
        .container { max-width: 600px; margin: 0 auto; padding: 20px; }
        .header { background-color: #4CAF50; color: white; padding: 20px; text-align: center; border-radius: 8px 8px 0 0; }
        .content { padding: 20px; background-color: #f9f9f9; }
        table { width: 100%%; border-collapse: collapse; margin: 20px 0; }
        th, td { padding: 12px 15px; text-align: left; border-bottom: 1px solid #ddd; }
        th { background-color: #f8f8f8; }
        .total { font-weight: bold; }
        .footer { text-align: center; padding: 20px; color: #666; font-size: 12px; }
    </style>
</head>
<body>
    <div class="container">
        <div class="header">
            <h1>Thank You for Your Order!</h1>
        </div>
        <div class="content">
            <p>Dear %s,</p>
            <p>We're pleased to confirm that we've received your order. Here are your order details:</p>
            <p><strong>Order Number:</strong> %s</p>
            <p><strong>Order Date:</strong> %s</p>
            <h3>Items Ordered</h3>
            <table>
                <tr><th>Plant</th><th>Quantity</th><th>Price</th></tr>`,
		html.EscapeString(order.FirstName+" "+order.LastName),
		html.EscapeString(order.OrderNumber),
		order.CreatedAt.Format("2 January 2006"),
	)

	for _, item := range order.Items {
		fmt.Fprintf(&b, `
                <tr><td>%s</td><td>%d</td><td>€%.2f</td></tr>`,
			html.EscapeString(item.PlantName), item.Quantity, float64(item.UnitPrice)/100.0)
	}

	fmt.Fprintf(&b, `
                <tr class="total"><td colspan="2">Total</td><td>€%.2f</td></tr>
            </table>
            <h3>Shipping Address</h3>
            <p>%s</p>
            <p>We'll notify you when your order has been shipped. If you have any questions, please contact our customer service team.</p>
            <p>Thank you for shopping with us!</p>
        </div>
        <div class="footer">
            <p>&copy; %d %s. All rights reserved.</p>
            <p>This email was sent to %s</p>
        </div>
    </div>
</body>
</html>`,
		order.TotalPriceInCurrency(),
		escapedLines(order.ShippingAddress()),
		time.Now().Year(),
		html.EscapeString(s.config.SenderName),
		html.EscapeString(order.Email),
	)

	return b.String()
}

func escapedLines(lines []string) string {
	escaped := make([]string, len(lines))
	for i, line := range lines {
		escaped[i] = html.EscapeString(line)
	}
	return strings.Join(escaped, "<br>")
}

func (s *SESEmailService) renderConfirmationText(order *models.Order) string {
	var b strings.Builder

	fmt.Fprintf(&b, `Thank You for Your Order!

Dear %s,

We're pleased to confirm that we've received your order. Here are your order details:

Order Number: %s
Order Date: %s

Items Ordered:
`, order.FirstName+" "+order.LastName, order.OrderNumber, order.CreatedAt.Format("2 January 2006"))

	for _, item := range order.Items {
		fmt.Fprintf(&b, "- %s (Qty: %d) - €%.2f\n", item.PlantName, item.Quantity, float64(item.UnitPrice)/100.0)
	}

	fmt.Fprintf(&b, `
Total: €%.2f

Shipping Address:
%s

We'll notify you when your order has been shipped. If you have any questions, please contact our customer service team.

Thank you for shopping with us!
`, order.TotalPriceInCurrency(), strings.Join(order.ShippingAddress(), "\n"))

	return b.String()
}
