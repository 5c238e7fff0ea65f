/*
Package marsapi provides a session-aware client for the mars API.

# Overview

The mars API authenticates with three cookies: a short-lived access token,
a long-lived refresh token and a CSRF token that must be echoed in the
X-CSRF-Token header. This package keeps those cookies flowing and renews the
access token transparently, so callers only ever see two outcomes: the
response they asked for, or an *AuthenticationError meaning the user must
sign in again.

# Server vs Ambient

Both variants share one request pipeline and differ only in where the
credentials live.

  - NewServerClient: for a web server acting on behalf of one inbound request.
    Credentials are read from the inbound cookies and sent as an explicit
    Cookie header. Every Set-Cookie the API returns is written to a sink,
    normally the inbound ResponseWriter.
  - NewAmbientClient: for long-lived processes such as the CLI. Cookies live
    in an http.CookieJar, as they would in a browser.

A server client is created per inbound request:

	creds := marsapi.ExtractCredentials(r)
	client, err := marsapi.NewServerClient(apiURL, creds, marsapi.NewResponseWriterSink(w))
	if err != nil {
		return err
	}

	user, err := client.VerifySession(r.Context())
	if marsapi.IsAuthFailure(err) {
		http.Redirect(w, r, "/login", http.StatusFound)
		return nil
	}

# Request Pipeline

Each request passes through, in order:

 1. the credential hook (server variant: the Cookie header);
 2. the CSRF injector;
 3. the request id injector, forwarding X-Request-ID from the context;
 4. any hooks added with WithHooks;
 5. the retry transport (go-retryablehttp, idempotent methods only);
 6. the cookie propagator (server variant);
 7. the auth interceptor.

# Session Refresh

A 401 whose body carries invalid_access_token or expired_access_token makes
the interceptor ask the client's RefreshCoordinator for a refresh. However
many requests fail at once, only one POST /api/auth/refresh is in flight;
every waiter receives its result. The original request is then re-sent once
with the new credentials. A 401 carrying invalid_refresh_token or
expired_refresh_token fails straight away with *AuthenticationError. Other
401s, and 401s whose body is not a valid API error, are returned unchanged.

# Error Handling

  - *AuthenticationError: the session is gone; redirect to the login page.
  - *HTTPError: any other non-2xx response, with the API error code and id.
  - Transport errors are wrapped with fmt.Errorf and %w.

Use errors.As, IsAuthFailure or StatusCodeOf to inspect them.
*/
package marsapi
