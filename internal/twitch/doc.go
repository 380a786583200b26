// Package twitch integrates with the Twitch API.
//
// Two TokenProvider implementations cover the client-credentials and
// device-authorization OAuth flows behind one contract. Client wraps the
// Helix API for bulk live-status queries and user resolution.
package twitch
