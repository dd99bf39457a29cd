package contexthelpers

type contextKey string

const respondentIDContextKey = contextKey("respondentID")
const buildIDContextKey = contextKey("buildID")
