package kafka

import "fmt"

// TopicPrefix namespaces every topic this service publishes to.
const TopicPrefix = "identity"

// Topic builds a topic name such as "identity.user.registered".
func Topic(domain, action string) string {
	return fmt.Sprintf("%s.%s.%s", TopicPrefix, domain, action)
}
