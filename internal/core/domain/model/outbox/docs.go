// Package outbox models the durable log of integration events written in the
// same transaction as the order mutation that produced them.
//
// An entry starts Pending, becomes Published once the relay got an ack from
// the bus, or Failed after its retry budget is spent. Failed entries need an
// operator to requeue them and block later entries of the same order until
// they are.
package outbox
