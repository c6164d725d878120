// Package flow provides page-quantized admission control for buffered
// channel data. A Gate bounds how much unconsumed data may be outstanding
// in one direction; producers wait on a closed gate and are woken whenever
// usage drops. Wakeups are broadcast: every waiter rechecks its own
// condition, so spurious wakeups are expected and safe.
package flow
