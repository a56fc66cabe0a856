package kafka

// TopicPrefix namespaces every topic this service writes.
const TopicPrefix = "marketplace"

// Topic returns the topic for an aggregate's event, e.g.
// Topic("product", "review.added") = "marketplace.product.review.added".
func Topic(aggregate, action string) string {
	return TopicPrefix + "." + aggregate + "." + action
}
