// Package conversation maps user pairs to durable conversations and owns
// message persistence. A pair of users has exactly one conversation regardless
// of who initiates or in which order the ids arrive; concurrent first-contact
// creates converge on one row via the store's uniqueness constraint.
package conversation
