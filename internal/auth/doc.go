// Package auth issues and verifies bearer tokens for the OAuth
// compatibility endpoints.
//
// MCP clients that insist on an OAuth handshake call POST /register to
// obtain a client_id and POST /token to exchange it for an access token.
// Tokens are HS256 signed JWTs carrying the client ID in the "sub"
// claim, minted by a JWTAuthority configured with the gateway's
// jwt_secret. The gateway does not gate tool access on these tokens;
// they exist so discovery-driven clients complete their flow and
// connect.
package auth
