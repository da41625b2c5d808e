package services

// ServiceError carries an HTTP-shaped status for the controller layer.
type ServiceError struct {
	StatusCode int
	Message    string
}

func (e *ServiceError) Error() string {
	return e.Message
}
