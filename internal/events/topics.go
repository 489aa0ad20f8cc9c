package events

// Topics published by the payment subsystem. Downstream consumers (email
// receipts, fulfilment, analytics) subscribe by topic name.
const (
	TopicOrderPaid                 = "order.paid"
	TopicPaymentVerified           = "payment.verified"
	TopicPaymentVerificationFailed = "payment.verification_failed"
)
