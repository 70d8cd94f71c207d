package handler

import (
	"github.com/sirupsen/logrus"

	"completion-proxy/logging"
)

var log *logrus.Logger

func init() {
	log = logging.GetLogger()
}
