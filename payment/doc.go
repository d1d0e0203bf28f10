// Package payment captures money for a booking.
//
// A Charger takes an amount in minor units, a currency and a description and returns a receipt.
// Stripe talks to the Stripe API in test mode with a synthetic card; Fake never leaves the
// process and is what tests and offline demos use.
package payment
