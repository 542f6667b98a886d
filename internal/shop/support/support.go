// Package support answers the customer service and operations questions
// that have no backing integration yet.
package support

import (
	"fmt"
	"strings"
)

const (
	OrderStatusUnavailable = "Order status feature coming soon."
	TrackingUnavailable    = "Tracking feature coming soon."
	unknownQuestion        = "Sorry, I do not have an answer for that."
)

var faqs = map[string]string{
	"shipping": "Shipping usually takes 3-5 business days.",
	"returns":  "You can return items within 30 days of purchase.",
	"payment":  "We accept all major credit cards and PayPal.",
}

// Services lists the shop services reported by SystemStatus.
var Services = []string{
	"adservice",
	"cartservice",
	"checkoutservice",
	"currencyservice",
	"emailservice",
	"frontend",
	"loadgenerator",
	"paymentservice",
	"productcatalogservice",
	"recommendationservice",
	"shippingservice",
	"shoppingassistantservice",
}

// Answer looks up a FAQ topic, case-insensitively.
func Answer(question string) string {
	if a, ok := faqs[strings.ToLower(strings.TrimSpace(question))]; ok {
		return a
	}
	return unknownQuestion
}

// SystemStatus reports every service as healthy. Health probes are not wired.
func SystemStatus() map[string]string {
	status := make(map[string]string, len(Services))
	for _, svc := range Services {
		status[svc] = "Healthy"
	}
	return status
}

// Logs returns a placeholder log excerpt for service.
func Logs(service string) string {
	return fmt.Sprintf("Logs for %s: [Simulated log output]", service)
}
