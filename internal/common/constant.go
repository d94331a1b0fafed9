package common

// AuthorizationHeaderName carries the bearer access token on sync requests.
const AuthorizationHeaderName = "Authorization"

// BearerPrefix precedes the token in the Authorization header.
const BearerPrefix = "Bearer "
