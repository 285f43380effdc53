// Package enum keeps a bounded hall of fame of the best-scoring
// configurations visited during sampling and saves them to the permanent
// configuration store.
//
// Lower scores are better. Configurations are deduplicated on the
// fingerprint of their translation-canonical form, both within the archive
// and against an exclusion set seeded from the store.
package enum
