package server

type contextKey string

const contextKeyRequestID contextKey = "requestID"
