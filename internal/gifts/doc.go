// Package gifts runs the background gift scheduler: it polls the catalog on
// two harmonized cadences (a fast vip one and a slower default one), detects
// gifts it has never seen, announces them, and fans out purchase+delivery to
// every eligible subscriber in bounded concurrent batches.
//
// Ordering guarantees:
//   - discovered gifts are processed scarcest-first (ties: priciest first),
//     strictly one after another;
//   - batches of one gift run concurrently, users inside a batch in order.
//
// Failure isolation is per-user: one subscriber's failed purchase never
// blocks the rest of the batch or the scan.
package gifts
