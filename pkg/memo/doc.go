// Package memo memoizes map results so repeated pipeline runs skip work
// that was already done, such as network lookups whose answers rarely
// change.
//
// A Cache is attached to a mapreduce.Processor. Keys are derived with Key
// from the processor name and the (key, value) pair being mapped; only
// successful results are stored, so failed keys are retried on the next
// run. MemoryCache lives for the process, RedisCache is shared across
// processes and survives restarts.
package memo
