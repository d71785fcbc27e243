package apperr

var titles = map[Kind]string{
	Network:        "Connection Problem",
	Authentication: "Sign In Required",
	Authorization:  "Access Denied",
	Validation:     "Invalid Input",
	NotFound:       "Not Found",
	ServerError:    "Server Error",
	Database:       "Data Error",
	Payment:        "Payment Failed",
	Cart:           "Cart Error",
	Order:          "Order Error",
	Product:        "Product Error",
	Profile:        "Profile Error",
	Email:          "Email Error",
	FileUpload:     "Upload Failed",
	Unknown:        "Something Went Wrong",
	RateLimited:    "Too Many Requests",
	Conflict:       "Already In Progress",
}

var messages = map[Kind]string{
	Network:        "Unable to reach the server. Please check your connection and try again.",
	Authentication: "Please sign in to continue.",
	Authorization:  "You do not have permission to perform this action.",
	Validation:     "Please check the information you entered.",
	NotFound:       "The requested item could not be found.",
	ServerError:    "Internal server error",
	Database:       "We could not save or load your data. Please try again.",
	Payment:        "Your payment could not be processed.",
	Cart:           "We could not update your cart.",
	Order:          "We could not process this order.",
	Product:        "We could not load this product.",
	Profile:        "We could not update your profile.",
	Email:          "We could not send the email.",
	FileUpload:     "The file could not be uploaded.",
	Unknown:        "Internal server error",
	RateLimited:    "Rate limit exceeded. Please try again later.",
	Conflict:       "Another request is already working on this. Please refresh.",
}

// Title is the short heading shown with a kind's message.
func Title(kind Kind) string {
	if t, ok := titles[kind]; ok {
		return t
	}
	return titles[Unknown]
}

// UserMessage is the default client-facing message for a kind.
func UserMessage(kind Kind) string {
	if m, ok := messages[kind]; ok {
		return m
	}
	return messages[Unknown]
}
