// Package mock provides an in-process stand-in for the Salesforce token
// endpoint and the Agent API that facilitates testing of the bridge.
//
// The service issues RS256 signed access tokens, opens and deletes sessions and
// replies to messages with scripted event-stream turns. Every API request is
// recorded for later assertions.
package mock
