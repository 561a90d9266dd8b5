// Package backup exports and imports restaurants and visits as a
// versioned JSON document. Learned preferences are not part of a backup.
package backup
